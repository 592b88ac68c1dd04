// Package collection tests for the item collection manager.
package collection

import (
	"testing"
	"time"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/models"
)

// TestAdd verifies item creation defaults.
func TestAdd(t *testing.T) {
	c := New()

	before := time.Now()
	item, err := c.Add("https://example.com", "Example", "web")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if item.Category != "web" {
		t.Errorf("Category = %q, want 'web'", item.Category)
	}
	if item.IsPinned {
		t.Error("new items must not be pinned")
	}
	if item.ID <= 0 {
		t.Errorf("ID = %d, want positive millisecond timestamp", item.ID)
	}

	date, err := time.Parse(time.RFC3339, item.Date)
	if err != nil {
		t.Fatalf("Date %q is not RFC3339: %v", item.Date, err)
	}
	if d := date.Sub(before); d < -time.Second || d > time.Second {
		t.Errorf("Date %v not within 1s of call time %v", date, before)
	}

	view := c.ListView("", "", SortByDate)
	if len(view) != 1 || view[0].ID != item.ID {
		t.Errorf("ListView() = %+v, want exactly the added item", view)
	}
}

// TestAdd_defaultCategory verifies the sentinel category applies when blank.
func TestAdd_defaultCategory(t *testing.T) {
	c := New()

	for _, category := range []string{"", "   "} {
		item, err := c.Add("note", "", category)
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if item.Category != models.DefaultCategory {
			t.Errorf("Category = %q, want %q", item.Category, models.DefaultCategory)
		}
	}
}

// TestAdd_rejectsEmptyContent verifies empty-after-trim content fails.
func TestAdd_rejectsEmptyContent(t *testing.T) {
	c := New()

	for _, content := range []string{"", "   ", "\t\n"} {
		if _, err := c.Add(content, "desc", "cat"); !apperrors.Is(err, apperrors.ErrInvalid) {
			t.Errorf("Add(%q) error = %v, want INVALID_INPUT", content, err)
		}
	}
	if c.Len() != 0 {
		t.Errorf("rejected adds must not mutate, have %d items", c.Len())
	}
}

// TestAdd_prependsNewestFirst verifies insertion order is most-recent-first.
func TestAdd_prependsNewestFirst(t *testing.T) {
	c := New()

	first, _ := c.Add("first", "", "")
	second, _ := c.Add("second", "", "")

	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Errorf("items order = [%d %d], want newest first", items[0].ID, items[1].ID)
	}
}

// TestAdd_uniqueIDsUnderRapidCalls verifies IDs never collide even when
// several items are created within the same millisecond.
func TestAdd_uniqueIDsUnderRapidCalls(t *testing.T) {
	c := New()

	seen := make(map[int64]bool)
	for i := 0; i < 50; i++ {
		item, err := c.Add("content", "", "")
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if seen[item.ID] {
			t.Fatalf("duplicate ID %d", item.ID)
		}
		seen[item.ID] = true
	}
}

// TestSoftDelete verifies items move to the trash and vanish from views.
func TestSoftDelete(t *testing.T) {
	c := New()
	keep, _ := c.Add("keep", "", "")
	gone, _ := c.Add("gone", "", "")

	if err := c.SoftDelete(gone.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	for _, item := range c.ListView("", "", SortByDate) {
		if item.ID == gone.ID {
			t.Error("deleted item still visible in ListView()")
		}
	}

	trash := c.Trash()
	if len(trash) != 1 || trash[0].ID != gone.ID {
		t.Errorf("Trash() = %+v, want the deleted item", trash)
	}
	if c.Len() != 1 || c.Items()[0].ID != keep.ID {
		t.Errorf("active items = %+v, want only the kept item", c.Items())
	}
}

// TestSoftDelete_appendsToTrashEnd verifies the trash is append-only.
func TestSoftDelete_appendsToTrashEnd(t *testing.T) {
	c := New()
	a, _ := c.Add("a", "", "")
	b, _ := c.Add("b", "", "")

	c.SoftDelete(a.ID)
	c.SoftDelete(b.ID)

	trash := c.Trash()
	if len(trash) != 2 || trash[0].ID != a.ID || trash[1].ID != b.ID {
		t.Errorf("trash order = %+v, want deletion order", trash)
	}
}

// TestSoftDelete_notFound verifies deleting an unknown id is an error.
func TestSoftDelete_notFound(t *testing.T) {
	c := New()
	c.Add("only", "", "")

	if err := c.SoftDelete(12345); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("SoftDelete(unknown) error = %v, want NOT_FOUND", err)
	}
	if c.Len() != 1 {
		t.Error("failed delete must not mutate the collection")
	}
}

// TestSoftDelete_trashedIDNotAddressable verifies a trashed item cannot be
// deleted twice.
func TestSoftDelete_trashedIDNotAddressable(t *testing.T) {
	c := New()
	item, _ := c.Add("x", "", "")
	c.SoftDelete(item.ID)

	if err := c.SoftDelete(item.ID); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want NOT_FOUND", err)
	}
	if len(c.Trash()) != 1 {
		t.Errorf("trash length = %d, want 1", len(c.Trash()))
	}
}

// TestImport verifies new candidates are prepended in payload order.
func TestImport(t *testing.T) {
	c := New()
	existing, _ := c.Add("existing", "", "")

	candidates := []models.Item{
		{ID: 1, Content: "one", Category: "general", Date: "2026-01-01T00:00:00Z"},
		{ID: 2, Content: "two", Category: "general", Date: "2026-01-02T00:00:00Z"},
	}
	inserted := c.Import(candidates)
	if inserted != 2 {
		t.Errorf("Import() inserted = %d, want 2", inserted)
	}

	items := c.Items()
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if items[0].ID != 1 || items[1].ID != 2 || items[2].ID != existing.ID {
		t.Errorf("items order after import = [%d %d %d], want [1 2 %d]",
			items[0].ID, items[1].ID, items[2].ID, existing.ID)
	}
}

// TestImport_idempotent verifies importing the same payload twice inserts
// nothing the second time.
func TestImport_idempotent(t *testing.T) {
	c := New()
	candidates := []models.Item{
		{ID: 1, Content: "one"},
		{ID: 2, Content: "two"},
	}

	if inserted := c.Import(candidates); inserted != 2 {
		t.Fatalf("first Import() inserted = %d, want 2", inserted)
	}
	if inserted := c.Import(candidates); inserted != 0 {
		t.Errorf("second Import() inserted = %d, want 0", inserted)
	}
	if c.Len() != 2 {
		t.Errorf("len(items) = %d, want 2", c.Len())
	}
}

// TestImport_rejectsCollidingIDs verifies a colliding candidate is dropped,
// never merged into the existing item.
func TestImport_rejectsCollidingIDs(t *testing.T) {
	c := New()
	c.Import([]models.Item{{ID: 7, Content: "original"}})

	inserted := c.Import([]models.Item{{ID: 7, Content: "impostor"}})
	if inserted != 0 {
		t.Errorf("Import() inserted = %d, want 0", inserted)
	}
	if got := c.Items()[0].Content; got != "original" {
		t.Errorf("existing item content = %q, want untouched 'original'", got)
	}
}

// TestImport_duplicateIDsWithinPayload verifies only the first occurrence
// of a repeated ID survives.
func TestImport_duplicateIDsWithinPayload(t *testing.T) {
	c := New()

	inserted := c.Import([]models.Item{
		{ID: 5, Content: "first"},
		{ID: 5, Content: "second"},
	})
	if inserted != 1 {
		t.Errorf("Import() inserted = %d, want 1", inserted)
	}
	if got := c.Items()[0].Content; got != "first" {
		t.Errorf("kept content = %q, want 'first'", got)
	}
}

// TestImport_doesNotCheckTrash verifies trash IDs do not block imports.
func TestImport_doesNotCheckTrash(t *testing.T) {
	c := New()
	item, _ := c.Add("x", "", "")
	c.SoftDelete(item.ID)

	inserted := c.Import([]models.Item{{ID: item.ID, Content: "reimported"}})
	if inserted != 1 {
		t.Errorf("Import() inserted = %d, want 1; trash must not be consulted", inserted)
	}
}

// TestListView_queryMatchesAnyField verifies the OR semantics across
// content, description and category.
func TestListView_queryMatchesAnyField(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 1, Content: "https://golang.org", Description: "language site", Category: "dev"},
		{ID: 2, Content: "grocery run", Description: "", Category: "errands"},
		{ID: 3, Content: "meeting notes", Description: "golang sync", Category: "work"},
	})

	tests := []struct {
		query string
		want  []int64
	}{
		{"golang", []int64{1, 3}}, // content of 1, description of 3
		{"ERRANDS", []int64{2}},   // category, case-insensitive
		{"language", []int64{1}},  // description
		{"", []int64{1, 2, 3}},    // empty query matches everything
		{"zzz", nil},
	}

	for _, tt := range tests {
		got := c.ListView(tt.query, "", SortByDate)
		ids := make([]int64, 0, len(got))
		for _, item := range got {
			ids = append(ids, item.ID)
		}
		if len(ids) != len(tt.want) {
			t.Errorf("ListView(%q) ids = %v, want %v", tt.query, ids, tt.want)
			continue
		}
		seen := make(map[int64]bool)
		for _, id := range ids {
			seen[id] = true
		}
		for _, id := range tt.want {
			if !seen[id] {
				t.Errorf("ListView(%q) ids = %v, missing %d", tt.query, ids, id)
			}
		}
	}
}

// TestListView_categoryFilterIsExactAnd verifies the category filter is an
// exact-match AND condition on top of the query.
func TestListView_categoryFilterIsExactAnd(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 1, Content: "go book", Category: "dev"},
		{ID: 2, Content: "go mug", Category: "shopping"},
		{ID: 3, Content: "rust book", Category: "dev"},
	})

	got := c.ListView("go", "dev", SortByDate)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("ListView('go', 'dev') = %+v, want only item 1", got)
	}

	// Exact match only, no substring on the filter
	if got := c.ListView("", "de", SortByDate); len(got) != 0 {
		t.Errorf("ListView('', 'de') = %+v, want empty", got)
	}
}

// TestListView_sortByDateDescending verifies the non-increasing date
// property over a sequence of adds.
func TestListView_sortByDateDescending(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 1, Content: "a", Date: "2026-03-01T00:00:00Z"},
		{ID: 2, Content: "b", Date: "2026-05-01T00:00:00Z"},
		{ID: 3, Content: "c", Date: "2026-04-01T00:00:00Z"},
	})
	for i := 0; i < 5; i++ {
		if _, err := c.Add("added", "", ""); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	view := c.ListView("", "", SortByDate)
	for i := 1; i < len(view); i++ {
		prev, cur := view[i-1].Time(), view[i].Time()
		if cur.After(prev) {
			t.Fatalf("dates out of order at %d: %v before %v", i, prev, cur)
		}
	}
}

// TestListView_sortByName verifies ascending order by description with
// content as the fallback key.
func TestListView_sortByName(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 1, Content: "zebra.com", Description: "alpha"},
		{ID: 2, Content: "beta note", Description: ""},
		{ID: 3, Content: "aaa.com", Description: "gamma"},
	})

	view := c.ListView("", "", SortByName)
	want := []int64{1, 2, 3} // alpha < beta note < gamma
	for i, id := range want {
		if view[i].ID != id {
			t.Errorf("view[%d].ID = %d, want %d", i, view[i].ID, id)
		}
	}
}

// TestListView_stableOnEqualKeys verifies equal sort keys preserve the
// prior relative order.
func TestListView_stableOnEqualKeys(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 1, Content: "first", Date: "2026-01-01T00:00:00Z"},
		{ID: 2, Content: "second", Date: "2026-01-01T00:00:00Z"},
		{ID: 3, Content: "third", Date: "2026-01-01T00:00:00Z"},
	})

	view := c.ListView("", "", SortByDate)
	for i, id := range []int64{1, 2, 3} {
		if view[i].ID != id {
			t.Errorf("view[%d].ID = %d, want %d (stable order)", i, view[i].ID, id)
		}
	}
}

// TestListView_doesNotMutate verifies the projection is read-only.
func TestListView_doesNotMutate(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 2, Content: "b", Date: "2026-01-02T00:00:00Z"},
		{ID: 1, Content: "a", Date: "2026-01-01T00:00:00Z"},
	})

	c.ListView("", "", SortByName)

	items := c.Items()
	if items[0].ID != 2 || items[1].ID != 1 {
		t.Errorf("underlying order changed to %+v", items)
	}
}

// TestCategories verifies sorted distinct category extraction.
func TestCategories(t *testing.T) {
	c := New()
	c.Import([]models.Item{
		{ID: 1, Category: "web"},
		{ID: 2, Category: "general"},
		{ID: 3, Category: "web"},
		{ID: 4, Category: ""},
	})

	got := c.Categories()
	want := []string{"general", "web"}
	if len(got) != len(want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
