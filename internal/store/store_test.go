// Package store tests for local sqlite persistence.
package store

import (
	"reflect"
	"testing"

	"github.com/linkmeir/linkvault/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleItems() []models.Item {
	return []models.Item{
		{ID: 1700000000001, Content: "https://example.com", Description: "Example", Category: "web", Date: "2026-08-01T10:00:00Z"},
		{ID: 1700000000002, Content: "buy milk", Category: "general", Date: "2026-08-02T11:30:00Z", IsPinned: true},
	}
}

// TestBlob_roundTrip verifies blob storage get/put semantics.
func TestBlob_roundTrip(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetBlob("missing"); err != nil || ok {
		t.Errorf("GetBlob(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	if err := db.PutBlob("k", "v1"); err != nil {
		t.Fatalf("PutBlob() error = %v", err)
	}
	if err := db.PutBlob("k", "v2"); err != nil {
		t.Fatalf("PutBlob() overwrite error = %v", err)
	}

	value, ok, err := db.GetBlob("k")
	if err != nil {
		t.Fatalf("GetBlob() error = %v", err)
	}
	if !ok || value != "v2" {
		t.Errorf("GetBlob() = %q, %v; want 'v2', true", value, ok)
	}
}

// TestSnapshot_roundTrip verifies Save then Load returns an equal pair
// with order preserved.
func TestSnapshot_roundTrip(t *testing.T) {
	snap := NewSnapshotStore(openTestDB(t))

	items := sampleItems()
	trash := []models.Item{
		{ID: 1699999999999, Content: "old note", Category: "general", Date: "2026-07-01T09:00:00Z"},
	}

	if err := snap.Save(items, trash); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	gotItems, gotTrash := snap.Load()
	if !reflect.DeepEqual(gotItems, items) {
		t.Errorf("Load() items = %+v, want %+v", gotItems, items)
	}
	if !reflect.DeepEqual(gotTrash, trash) {
		t.Errorf("Load() trash = %+v, want %+v", gotTrash, trash)
	}
}

// TestSnapshot_emptyWhenMissing verifies a fresh store loads empty lists.
func TestSnapshot_emptyWhenMissing(t *testing.T) {
	snap := NewSnapshotStore(openTestDB(t))

	items, trash := snap.Load()
	if len(items) != 0 || len(trash) != 0 {
		t.Errorf("Load() on fresh store = %d items, %d trash; want 0, 0", len(items), len(trash))
	}
	if items == nil || trash == nil {
		t.Error("Load() should return empty slices, not nil")
	}
}

// TestSnapshot_corruptPayloadDegradesToEmpty verifies corruption is
// treated as "no data", never fatal.
func TestSnapshot_corruptPayloadDegradesToEmpty(t *testing.T) {
	db := openTestDB(t)
	if err := db.PutBlob(SnapshotKey, "{not json"); err != nil {
		t.Fatalf("PutBlob() error = %v", err)
	}

	snap := NewSnapshotStore(db)
	items, trash := snap.Load()
	if len(items) != 0 || len(trash) != 0 {
		t.Errorf("corrupt snapshot should load empty, got %d items, %d trash", len(items), len(trash))
	}
}

// TestSnapshot_overwrite verifies Save replaces the whole snapshot.
func TestSnapshot_overwrite(t *testing.T) {
	snap := NewSnapshotStore(openTestDB(t))

	if err := snap.Save(sampleItems(), nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	replacement := []models.Item{{ID: 42, Content: "only one", Category: "general", Date: "2026-08-03T00:00:00Z"}}
	if err := snap.Save(replacement, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	items, _ := snap.Load()
	if !reflect.DeepEqual(items, replacement) {
		t.Errorf("Load() items = %+v, want %+v", items, replacement)
	}
}

// TestDocument_putAndGet verifies per-identity document persistence.
func TestDocument_putAndGet(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetDocument("uid-1"); err != nil || ok {
		t.Errorf("GetDocument(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	doc := models.VaultDocument{
		Items:       sampleItems(),
		Trash:       []models.Item{},
		LastUpdated: "2026-08-02T12:00:00Z",
	}
	if err := db.PutDocument("uid-1", doc); err != nil {
		t.Fatalf("PutDocument() error = %v", err)
	}

	got, ok, err := db.GetDocument("uid-1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if !ok {
		t.Fatal("GetDocument() should find the written document")
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("GetDocument() = %+v, want %+v", got, doc)
	}
}

// TestDocument_nilSlicesNormalize verifies nil containers fail closed to
// empty slices on the way in and out.
func TestDocument_nilSlicesNormalize(t *testing.T) {
	db := openTestDB(t)

	if err := db.PutDocument("uid-2", models.VaultDocument{LastUpdated: "2026-08-02T12:00:00Z"}); err != nil {
		t.Fatalf("PutDocument() error = %v", err)
	}

	got, ok, err := db.GetDocument("uid-2")
	if err != nil || !ok {
		t.Fatalf("GetDocument() = ok %v, err %v", ok, err)
	}
	if got.Items == nil || got.Trash == nil {
		t.Error("document containers should never come back nil")
	}
}
