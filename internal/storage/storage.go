// Package storage persists serialized articles and reads them back.
package storage

import (
	"github.com/IshaanNene/dhscrape/internal/article"
)

// Record is one serialized article.
type Record struct {
	ID   article.Identity
	Data []byte
}

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of records. A batch is written whole or not
	// at all as far as the backend allows.
	Store(records []Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
