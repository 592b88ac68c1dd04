package remote

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkmeir/linkvault/internal/models"
)

// MemoryStore is an in-process DocumentStore. It keeps the full notify-on-
// write contract of the real store and backs tests and offline demos.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]models.VaultDocument
	subs map[string]map[string]*memorySub // uid -> subscription id -> sub
}

type memorySub struct {
	onChange ChangeFunc
	onError  ErrorFunc
	closed   bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]models.VaultDocument),
		subs: make(map[string]map[string]*memorySub),
	}
}

// Seed installs a document without notifying subscribers, for arranging
// pre-existing server state.
func (m *MemoryStore) Seed(uid string, doc models.VaultDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.Normalize()
	m.docs[uid] = cloneDocument(doc)
}

// Document returns the current document for uid.
func (m *MemoryStore) Document(uid string) (models.VaultDocument, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[uid]
	return cloneDocument(doc), ok
}

// Subscribe implements DocumentStore. The initial notification is
// delivered synchronously before Subscribe returns.
func (m *MemoryStore) Subscribe(ctx context.Context, uid string, onChange ChangeFunc, onError ErrorFunc) (*Subscription, error) {
	m.mu.Lock()
	id := uuid.New().String()
	sub := &memorySub{onChange: onChange, onError: onError}
	if m.subs[uid] == nil {
		m.subs[uid] = make(map[string]*memorySub)
	}
	m.subs[uid][id] = sub
	doc, exists := m.docs[uid]
	m.mu.Unlock()

	onChange(Update{Exists: exists, Document: cloneDocument(doc)})

	return newSubscription(id, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs := m.subs[uid]; subs != nil {
			if s, ok := subs[id]; ok {
				s.closed = true
				delete(subs, id)
			}
		}
	}), nil
}

// Write implements DocumentStore. Items and trash replace the stored
// arrays wholesale; LastUpdated is stamped here the way the server would.
func (m *MemoryStore) Write(ctx context.Context, uid string, items, trash []models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	doc := m.docs[uid]
	doc.Items = items
	doc.Trash = trash
	doc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	doc.Normalize()
	// Detach from the caller's backing arrays before retaining the
	// document, matching the isolation a real transport provides.
	doc = cloneDocument(doc)
	m.docs[uid] = doc

	// Collect targets under the lock, deliver outside it so a callback
	// may call back into the store without deadlocking.
	targets := make([]ChangeFunc, 0, len(m.subs[uid]))
	for _, sub := range m.subs[uid] {
		if !sub.closed {
			targets = append(targets, sub.onChange)
		}
	}
	m.mu.Unlock()

	for _, notify := range targets {
		// Each subscriber gets its own copy; one adopting the slices
		// must not alias the others or the store.
		notify(Update{Exists: true, Document: cloneDocument(doc)})
	}
	return nil
}

// cloneDocument deep-copies the item arrays so no two holders share
// backing storage.
func cloneDocument(doc models.VaultDocument) models.VaultDocument {
	items := make([]models.Item, len(doc.Items))
	copy(items, doc.Items)
	trash := make([]models.Item, len(doc.Trash))
	copy(trash, doc.Trash)
	doc.Items = items
	doc.Trash = trash
	return doc
}
