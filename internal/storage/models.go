package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BackupRecord is one export or import run, kept for the history view.
type BackupRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`             // "export" or "import"
	Policy    string    `json:"policy,omitempty"` // import only: "overwrite" or "add-only"
	KeysAdded int       `json:"keys_added"`
	KeysTotal int       `json:"keys_total"`
	CreatedAt time.Time `json:"created_at"`
}
