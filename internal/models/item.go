// Package models provides data model definitions for LinkVault.
package models

import "time"

// DefaultCategory is assigned to items created without an explicit category.
const DefaultCategory = "general"

// Item represents a single stored link or note entry.
// ID is the creation timestamp in milliseconds and is immutable once assigned;
// delete and import addressing rely on it being unique within the active
// collection.
type Item struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"` // ISO-8601 / RFC 3339
	IsPinned    bool   `json:"isPinned"`
}

// Time returns the parsed Date. A Date that fails to parse resolves to the
// zero time so sorting stays total instead of erroring per item.
func (i Item) Time() time.Time {
	t, err := time.Parse(time.RFC3339, i.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DisplayName returns the label the list view sorts and renders by:
// the description when present, the raw content otherwise.
func (i Item) DisplayName() string {
	if i.Description != "" {
		return i.Description
	}
	return i.Content
}
