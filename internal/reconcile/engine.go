// Package reconcile decides, on every authentication transition or remote
// notification, which snapshot of the item collection is authoritative and
// keeps the in-memory state, the local snapshot store and the remote
// document consistent.
package reconcile

import (
	"context"
	"sync"

	"github.com/linkmeir/linkvault/internal/collection"
	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/models"
	"github.com/linkmeir/linkvault/internal/remote"
	"github.com/linkmeir/linkvault/internal/store"
)

// Status represents the current sync status.
type Status string

const (
	StatusOffline Status = "offline"
	StatusSyncing Status = "syncing"
	StatusOnline  Status = "online"
	StatusError   Status = "error"
)

// Engine owns the canonical collection state. All access is serialized
// through its mutex; remote callbacks arrive on their own goroutines and
// funnel through the same lock.
//
// Two monotonic counters implement the single-writer discipline per
// identity session: session invalidates callbacks sourced from a previous
// identity's subscription, and writeGen/ackedGen let the latest local
// write win over a remote notification observed while that write is still
// in flight.
type Engine struct {
	mu     sync.Mutex
	coll   *collection.Collection
	local  *store.SnapshotStore
	remote remote.DocumentStore

	status   Status
	identity *models.Identity
	sub      *remote.Subscription

	session  uint64
	writeGen uint64
	ackedGen uint64

	onState func()
}

// NewEngine creates an Engine hydrated from the local snapshot store.
// remoteStore may be nil for local-only deployments.
func NewEngine(local *store.SnapshotStore, remoteStore remote.DocumentStore) *Engine {
	e := &Engine{
		coll:   collection.New(),
		local:  local,
		remote: remoteStore,
		status: StatusOffline,
	}
	items, trash := local.Load()
	e.coll.Replace(items, trash)
	return e
}

// SetOnStateChange registers the presentation hook invoked after every
// state transition. The hook runs outside the engine lock.
func (e *Engine) SetOnStateChange(fn func()) {
	e.mu.Lock()
	e.onState = fn
	e.mu.Unlock()
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Identity returns the currently signed-in identity, or nil.
func (e *Engine) Identity() *models.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Items returns a copy of the active items.
func (e *Engine) Items() []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coll.Items()
}

// TrashItems returns a copy of the soft-deleted items.
func (e *Engine) TrashItems() []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coll.Trash()
}

// ListView returns a filtered, sorted projection of the active items.
func (e *Engine) ListView(query, categoryFilter string, mode collection.SortMode) []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coll.ListView(query, categoryFilter, mode)
}

// Categories returns the sorted distinct categories of the active items.
func (e *Engine) Categories() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coll.Categories()
}

// HandleAuthChange reacts to an identity transition from the auth
// collaborator. It is the OnAuthStateChanged listener.
func (e *Engine) HandleAuthChange(identity *models.Identity) {
	e.mu.Lock()
	// Always drop the previous feed before anything else so no stale
	// listener can race the new session.
	if e.sub != nil {
		e.sub.Close()
		e.sub = nil
	}
	e.session++
	session := e.session
	e.identity = identity
	// Generation counters are per session. A write abandoned by the old
	// session must not shield the new session's notifications.
	e.writeGen = 0
	e.ackedGen = 0

	if identity == nil {
		// Sign-out: discard cloud-sourced state and fall back to
		// whatever was last persisted locally.
		items, trash := e.local.Load()
		e.coll.Replace(items, trash)
		e.status = StatusOffline
		e.mu.Unlock()
		e.notify()
		logging.Info("signed out, collection reloaded from local snapshot")
		return
	}

	e.status = StatusSyncing
	uid := identity.UID
	rem := e.remote
	e.mu.Unlock()
	e.notify()

	if rem == nil {
		e.failSession(session, apperrors.New(apperrors.ErrSyncFailed, "no remote store configured"))
		return
	}

	sub, err := rem.Subscribe(context.Background(), uid,
		func(u remote.Update) { e.handleRemoteUpdate(session, uid, u) },
		func(err error) { e.handleRemoteError(session, err) },
	)
	if err != nil {
		e.failSession(session, err)
		return
	}

	e.mu.Lock()
	if e.session != session {
		// Identity changed while we were subscribing.
		e.mu.Unlock()
		sub.Close()
		return
	}
	e.sub = sub
	e.mu.Unlock()
	logging.Info("subscribed to remote document", map[string]interface{}{"uid": uid})
}

// handleRemoteUpdate processes one notification from the live feed.
func (e *Engine) handleRemoteUpdate(session uint64, uid string, u remote.Update) {
	e.mu.Lock()
	if e.session != session {
		// Stale subscription callback from a previous identity.
		e.mu.Unlock()
		return
	}

	if !u.Exists {
		// First login for this identity: the current local state is the
		// seed. Create the remote document without blocking the caller.
		items, trash := e.coll.Items(), e.coll.Trash()
		gen := e.writeGen
		e.mu.Unlock()
		logging.Info("remote document absent, seeding from local state", map[string]interface{}{"uid": uid})
		go e.pushRemote(session, uid, gen, items, trash)
		return
	}

	if e.writeGen > e.ackedGen {
		// A newer local write is still in flight; its echo notification
		// supersedes this one, so the latest local write stays the winner.
		e.mu.Unlock()
		logging.Debug("dropping remote notification, local write in flight")
		return
	}

	// Remote is authoritative whenever present: overwrite both the
	// in-memory state and the local snapshot.
	doc := u.Document
	doc.Normalize()
	e.coll.Replace(doc.Items, doc.Trash)
	if err := e.local.Save(doc.Items, doc.Trash); err != nil {
		logging.Error("failed to flush remote state to local snapshot", err)
	}
	e.status = StatusOnline
	e.mu.Unlock()
	e.notify()
}

// handleRemoteError processes a subscription failure. Degraded local-only
// operation continues; nothing is retried until the next triggering event.
func (e *Engine) handleRemoteError(session uint64, err error) {
	e.failSession(session, err)
}

func (e *Engine) failSession(session uint64, err error) {
	e.mu.Lock()
	if e.session != session {
		e.mu.Unlock()
		return
	}
	e.status = StatusError
	e.mu.Unlock()
	e.notify()

	if apperrors.Is(err, apperrors.ErrPermission) {
		logging.Error("remote store denied access, review its security rules", err)
	} else {
		logging.Error("remote sync failed", err)
	}
}

// Add creates a new item and writes it through both stores.
func (e *Engine) Add(content, description, category string) (models.Item, error) {
	e.mu.Lock()
	item, err := e.coll.Add(content, description, category)
	if err != nil {
		e.mu.Unlock()
		return models.Item{}, err
	}
	e.commitLocked()
	return item, nil
}

// SoftDelete moves an item to the trash and writes through both stores.
func (e *Engine) SoftDelete(id int64) error {
	e.mu.Lock()
	if err := e.coll.SoftDelete(id); err != nil {
		e.mu.Unlock()
		return err
	}
	e.commitLocked()
	return nil
}

// ImportPayload parses a JSON item array and inserts the candidates whose
// ids are not already present. A malformed payload performs no mutation.
func (e *Engine) ImportPayload(data []byte) (int, error) {
	candidates, err := collection.ParseImport(data)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	inserted := e.coll.Import(candidates)
	if inserted == 0 {
		e.mu.Unlock()
		return 0, nil
	}
	e.commitLocked()
	return inserted, nil
}

// Export encodes the active items for download. The trash is excluded.
func (e *Engine) Export() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coll.ExportJSON()
}

// commitLocked persists the mutation already applied to the collection:
// synchronously to the local snapshot, then asynchronously to the remote
// document when signed in. The caller must hold mu; commitLocked releases
// it.
func (e *Engine) commitLocked() {
	items, trash := e.coll.Items(), e.coll.Trash()
	if err := e.local.Save(items, trash); err != nil {
		// The in-memory mutation stands; persistence degrades loudly.
		logging.Error("failed to persist local snapshot", err)
	}

	if e.identity == nil || e.remote == nil {
		e.mu.Unlock()
		e.notify()
		return
	}

	e.writeGen++
	gen := e.writeGen
	session := e.session
	uid := e.identity.UID
	e.status = StatusSyncing
	e.mu.Unlock()
	e.notify()

	go e.pushRemote(session, uid, gen, items, trash)
}

// pushRemote performs one remote write attempt. Failure surfaces as error
// status without rolling back the already-applied local mutation.
func (e *Engine) pushRemote(session uint64, uid string, gen uint64, items, trash []models.Item) {
	err := e.remote.Write(context.Background(), uid, items, trash)

	e.mu.Lock()
	if e.session != session {
		e.mu.Unlock()
		return
	}
	// The write is no longer in flight whatever its outcome; a failed
	// write must not keep shielding later remote notifications.
	if gen > e.ackedGen {
		e.ackedGen = gen
	}
	if err != nil {
		e.status = StatusError
		e.mu.Unlock()
		e.notify()

		if apperrors.Is(err, apperrors.ErrPermission) {
			logging.Error("remote store denied the write, review its security rules", err)
		} else {
			logging.Error("remote write failed", err, map[string]interface{}{"uid": uid})
		}
		return
	}

	e.status = StatusOnline
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onState
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}
