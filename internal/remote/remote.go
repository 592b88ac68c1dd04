// Package remote provides access to the per-identity vault document store:
// a live change subscription for reads and a merge-write primitive.
package remote

import (
	"context"
	"sync"

	"github.com/linkmeir/linkvault/internal/models"
)

// Update carries one notification from a document feed. Exists is false
// when the identity has never written a document.
type Update struct {
	Exists   bool
	Document models.VaultDocument
}

// ChangeFunc receives document notifications. The first call reflects the
// current server state and later calls fire on every remote update,
// including updates caused by this client's own writes; callers must be
// idempotent against redundant notifications.
type ChangeFunc func(Update)

// ErrorFunc receives subscription failures. Errors are non-fatal: the
// caller degrades to local-only mode.
type ErrorFunc func(error)

// DocumentStore is the remote store collaborator.
type DocumentStore interface {
	// Subscribe establishes the live feed for uid. At most one live
	// subscription per identity is permitted; callers must Close the
	// previous subscription before opening one for a different identity.
	Subscribe(ctx context.Context, uid string, onChange ChangeFunc, onError ErrorFunc) (*Subscription, error)

	// Write performs a merge write: items and trash are each replaced
	// wholesale while other document fields are preserved server-side.
	// Failure leaves local state untouched and is reported, not retried.
	Write(ctx context.Context, uid string, items, trash []models.Item) error
}

// Subscription is a handle on a live document feed.
type Subscription struct {
	id      string
	once    sync.Once
	closeFn func()
}

func newSubscription(id string, closeFn func()) *Subscription {
	return &Subscription{id: id, closeFn: closeFn}
}

// ID returns the opaque subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Close cancels the feed. No callbacks fire after Close returns, apart
// from deliveries already in flight. Close is idempotent.
func (s *Subscription) Close() {
	s.once.Do(s.closeFn)
}

// WatchEvent is the wire envelope of the watch feed, shared between the
// client and the reference server.
type WatchEvent struct {
	Type     string               `json:"type"` // snapshot or update
	Exists   bool                 `json:"exists"`
	Document models.VaultDocument `json:"document"`
}

const (
	// EventSnapshot is the initial state delivered on subscribe.
	EventSnapshot = "snapshot"
	// EventUpdate is delivered on every subsequent document write.
	EventUpdate = "update"
)
