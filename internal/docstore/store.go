// Package docstore provides the document store abstraction that notes are persisted through.
package docstore

import (
	"context"
	"errors"

	"github.com/mmynk/notekeeper/internal/models"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidID     = errors.New("invalid document id")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidField  = errors.New("invalid field name")

	// ErrUnauthenticated is returned by stores that act on behalf of a signed-in user.
	ErrUnauthenticated = errors.New("not authenticated")
)

// UniqueID asks the store to assign a fresh document ID on create.
const UniqueID = "unique()"

// Store defines the remote document store operations.
// This abstraction allows swapping backends (the document service, MongoDB, SQLite)
// without changing the note layer.
type Store interface {
	// ListDocuments returns the documents of a collection matching every filter, newest first.
	ListDocuments(ctx context.Context, databaseID, collectionID string, filters ...Filter) ([]*models.Document, error)

	// CreateDocument persists a new document and returns it with ID and timestamps populated.
	// Pass UniqueID as documentID to let the store assign one.
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document does not exist.
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*models.Document, error)

	// UpdateDocument merges fields into an existing document and returns the result.
	// Attributes not present in fields are left untouched.
	// Returns ErrNotFound if the document does not exist.
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error)

	// DeleteDocument removes a document.
	// Returns ErrNotFound if the document does not exist.
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// OwnedCreator is implemented by stores that can record the creating principal of a document.
// The document service uses it to attach permissions.
type OwnedCreator interface {
	CreateOwnedDocument(ctx context.Context, databaseID, collectionID, documentID, ownerID string, fields map[string]any) (*models.Document, error)
}
