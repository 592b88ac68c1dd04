// Package models provides data model definitions for LinkVault.
package models

// VaultDocument is the remote document body stored per identity under
// (collection="users", key=uid). Items and trash are always replaced
// wholesale on write; LastUpdated is assigned by the server.
type VaultDocument struct {
	Items       []Item `json:"items"`
	Trash       []Item `json:"trash"`
	LastUpdated string `json:"lastUpdated"`
}

// Normalize defaults absent containers to empty slices so deserialized
// documents fail closed to empty collections instead of nil.
func (d *VaultDocument) Normalize() {
	if d.Items == nil {
		d.Items = []Item{}
	}
	if d.Trash == nil {
		d.Trash = []Item{}
	}
}
