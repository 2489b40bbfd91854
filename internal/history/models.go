package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Upload is one row of the local upload history. DocumentID is the
// remote knowledge base identifier, empty until the upload succeeds.
type Upload struct {
	ID         string
	DocumentID string
	Name       string
	SourceType string // "url", "file", "table"
	Source     string
	Status     string // "pending", "uploaded", "failed"
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	StatusPending  = "pending"
	StatusUploaded = "uploaded"
	StatusFailed   = "failed"
)
