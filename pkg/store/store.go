// Package store persists layout documents produced by the HTTP API.
//
// Two backends implement [Store]:
//   - [Memory]: process-local, for development and tests
//   - [Mongo]: MongoDB, for deployments with several API replicas
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/statelayout/pkg/graph"
)

// ErrNotFound is returned when no document has the requested ID.
var ErrNotFound = errors.New("layout document not found")

// Document is one stored layout together with its provenance.
type Document struct {
	ID         string       `json:"id" bson:"_id"`
	Name       string       `json:"name" bson:"name"`
	Format     string       `json:"format,omitempty" bson:"format,omitempty"`
	CreatedAt  time.Time    `json:"created_at" bson:"created_at"`
	DurationMS int64        `json:"duration_ms" bson:"duration_ms"`
	Layout     graph.Layout `json:"layout" bson:"layout"`
}

// NewDocument wraps a layout in a document with a fresh random ID.
func NewDocument(name string, l graph.Layout) *Document {
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Layout:    l,
	}
}

// ValidID reports whether id has the shape of a document ID.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}

// Store keeps layout documents.
type Store interface {
	// Save inserts or replaces doc.
	Save(ctx context.Context, doc *Document) error
	// Get returns the document with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)
	// Delete removes the document with id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	// List returns up to limit documents, newest first. Layout bodies are
	// included.
	List(ctx context.Context, limit int) ([]*Document, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}
