package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GetBlob returns the value stored under key. The second return value is
// false when the key has never been written.
func (db *DB) GetBlob(key string) (string, bool, error) {
	var value string
	err := db.QueryRow("SELECT value FROM blobs WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return value, true, nil
}

// PutBlob overwrites the value stored under key in a single statement, so
// readers never observe a partial write.
func (db *DB) PutBlob(key, value string) error {
	query := `
	INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.Exec(query, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}
