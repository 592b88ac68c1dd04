package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/linkmeir/linkvault/internal/models"
)

// GetDocument returns the vault document for uid. The second return value
// is false when the identity has never written a document.
func (db *DB) GetDocument(uid string) (models.VaultDocument, bool, error) {
	var doc models.VaultDocument
	var items, trash string
	err := db.QueryRow(
		"SELECT items, trash, last_updated FROM documents WHERE uid = ?", uid,
	).Scan(&items, &trash, &doc.LastUpdated)
	if err == sql.ErrNoRows {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, fmt.Errorf("failed to read document for %q: %w", uid, err)
	}

	if err := json.Unmarshal([]byte(items), &doc.Items); err != nil {
		return doc, false, fmt.Errorf("corrupt items column for %q: %w", uid, err)
	}
	if err := json.Unmarshal([]byte(trash), &doc.Trash); err != nil {
		return doc, false, fmt.Errorf("corrupt trash column for %q: %w", uid, err)
	}
	doc.Normalize()
	return doc, true, nil
}

// PutDocument overwrites the vault document for uid.
func (db *DB) PutDocument(uid string, doc models.VaultDocument) error {
	doc.Normalize()
	items, err := json.Marshal(doc.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	trash, err := json.Marshal(doc.Trash)
	if err != nil {
		return fmt.Errorf("failed to encode trash: %w", err)
	}

	query := `
	INSERT INTO documents (uid, items, trash, last_updated) VALUES (?, ?, ?, ?)
	ON CONFLICT(uid) DO UPDATE SET
		items = excluded.items,
		trash = excluded.trash,
		last_updated = excluded.last_updated
	`
	if _, err := db.Exec(query, uid, string(items), string(trash), doc.LastUpdated); err != nil {
		return fmt.Errorf("failed to write document for %q: %w", uid, err)
	}
	return nil
}
