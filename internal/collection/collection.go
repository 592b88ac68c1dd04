// Package collection manages the canonical in-memory item collection:
// CRUD, soft-delete, de-duplicated import and read-only projections.
//
// A Collection is not synchronized; the reconciliation engine serializes
// all access to it.
package collection

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/models"
)

// SortMode selects the ordering of a list view projection.
type SortMode string

const (
	SortByDate SortMode = "date" // newest first
	SortByName SortMode = "name" // ascending by description, falling back to content
)

// Collection holds the active items and the soft-delete trash.
// An item is in exactly one of the two lists. The trash is append-only and
// never pruned; there is deliberately no restore operation.
type Collection struct {
	items []models.Item
	trash []models.Item
}

// New creates an empty Collection.
func New() *Collection {
	return &Collection{items: []models.Item{}, trash: []models.Item{}}
}

// Replace swaps in a whole new {items, trash} pair, defaulting nil
// containers to empty slices.
func (c *Collection) Replace(items, trash []models.Item) {
	if items == nil {
		items = []models.Item{}
	}
	if trash == nil {
		trash = []models.Item{}
	}
	c.items = items
	c.trash = trash
}

// Items returns a copy of the active items in insertion order.
func (c *Collection) Items() []models.Item {
	out := make([]models.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Trash returns a copy of the soft-deleted items.
func (c *Collection) Trash() []models.Item {
	out := make([]models.Item, len(c.trash))
	copy(out, c.trash)
	return out
}

// Len returns the number of active items.
func (c *Collection) Len() int {
	return len(c.items)
}

// Add creates a new item at the front of the collection. Content must be
// non-empty after trimming; a blank category defaults to
// models.DefaultCategory. The ID is the creation time in milliseconds,
// bumped past any collision so delete addressing stays unambiguous.
func (c *Collection) Add(content, description, category string) (models.Item, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Item{}, apperrors.New(apperrors.ErrInvalid, "item content must not be empty")
	}
	if strings.TrimSpace(category) == "" {
		category = models.DefaultCategory
	}

	now := time.Now()
	id := now.UnixMilli()
	for c.hasID(id) {
		id++
	}

	item := models.Item{
		ID:          id,
		Content:     content,
		Description: description,
		Category:    category,
		Date:        now.UTC().Format(time.RFC3339),
		IsPinned:    false,
	}
	c.items = append([]models.Item{item}, c.items...)
	return item, nil
}

// SoftDelete moves the item with the given id from the active list to the
// end of the trash. Deleting an unknown id is a NotFound error.
func (c *Collection) SoftDelete(id int64) error {
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.trash = append(c.trash, item)
			return nil
		}
	}
	return apperrors.New(apperrors.ErrNotFound, "item not found")
}

// Import prepends every candidate whose ID is not already present in the
// active items, preserving the candidates' order, and returns how many
// were inserted. Candidates colliding with an existing active ID are
// dropped, never merged; the trash is not consulted.
func (c *Collection) Import(candidates []models.Item) int {
	existing := make(map[int64]bool, len(c.items))
	for _, item := range c.items {
		existing[item.ID] = true
	}

	fresh := make([]models.Item, 0, len(candidates))
	for _, candidate := range candidates {
		if existing[candidate.ID] {
			continue
		}
		existing[candidate.ID] = true
		fresh = append(fresh, candidate)
	}
	if len(fresh) == 0 {
		return 0
	}
	c.items = append(fresh, c.items...)
	return len(fresh)
}

// ListView returns a filtered, sorted projection of the active items.
// The query matches case-insensitively as a substring against content,
// description or category. A non-empty category filter is an exact-match
// condition on top of the query. Sorting is stable, so equal keys keep
// their prior relative order.
func (c *Collection) ListView(query, categoryFilter string, mode SortMode) []models.Item {
	q := strings.ToLower(query)

	out := make([]models.Item, 0, len(c.items))
	for _, item := range c.items {
		if categoryFilter != "" && item.Category != categoryFilter {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(item.Content), q) &&
			!strings.Contains(strings.ToLower(item.Description), q) &&
			!strings.Contains(strings.ToLower(item.Category), q) {
			continue
		}
		out = append(out, item)
	}

	switch mode {
	case SortByName:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DisplayName() < out[j].DisplayName()
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Time().After(out[j].Time())
		})
	}
	return out
}

// Categories returns the sorted distinct non-empty categories of the
// active items, for building filter menus.
func (c *Collection) Categories() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, item := range c.items {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		out = append(out, item.Category)
	}
	sort.Strings(out)
	return out
}

func (c *Collection) hasID(id int64) bool {
	for _, item := range c.items {
		if item.ID == id {
			return true
		}
	}
	return false
}
