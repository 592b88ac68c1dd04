// Package models provides data model definitions for LinkVault.
package models

// Identity is the opaque authentication result owned by the auth
// collaborator. UID is the sync partition key; DisplayName and PhotoURL
// are display-only and never interpreted by the core.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}
