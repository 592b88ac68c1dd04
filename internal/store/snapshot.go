package store

import (
	"encoding/json"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/models"
)

// SnapshotKey is the fixed versioned key the collection snapshot lives
// under. Bumping the version abandons old snapshots rather than migrating
// them.
const SnapshotKey = "linkvault_snapshot_v1"

// snapshot is the persisted {items, trash} pair.
type snapshot struct {
	Items []models.Item `json:"items"`
	Trash []models.Item `json:"trash"`
}

// SnapshotStore persists the last known {items, trash} pair of the
// collection under a fixed key.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a SnapshotStore over an open database.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Load returns the last persisted snapshot. A missing snapshot, a storage
// failure or a payload that fails to parse all resolve to empty lists;
// corruption is treated as "no data", never as a fatal condition.
func (s *SnapshotStore) Load() ([]models.Item, []models.Item) {
	raw, ok, err := s.db.GetBlob(SnapshotKey)
	if err != nil {
		logging.Warn("snapshot load failed, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.Item{}, []models.Item{}
	}
	if !ok {
		return []models.Item{}, []models.Item{}
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		logging.Warn("snapshot is corrupt, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.Item{}, []models.Item{}
	}
	if snap.Items == nil {
		snap.Items = []models.Item{}
	}
	if snap.Trash == nil {
		snap.Trash = []models.Item{}
	}
	return snap.Items, snap.Trash
}

// Save overwrites the whole snapshot.
func (s *SnapshotStore) Save(items, trash []models.Item) error {
	data, err := json.Marshal(snapshot{Items: items, Trash: trash})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode snapshot", err)
	}
	if err := s.db.PutBlob(SnapshotKey, string(data)); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to persist snapshot", err)
	}
	return nil
}
