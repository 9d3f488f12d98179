// Package memory provides an in-process implementation of docstore.Store.
// It backs tests and the "memory" driver; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

var (
	_ docstore.Store        = (*Store)(nil)
	_ docstore.OwnedCreator = (*Store)(nil)
)

type key struct {
	database   string
	collection string
	id         string
}

// Store keeps documents in a map guarded by a mutex.
type Store struct {
	mu   sync.RWMutex
	docs map[key]*models.Document
	last time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[key]*models.Document)}
}

// ListDocuments returns copies of the matching documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, filters ...docstore.Filter) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateFilters(filters); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for k, doc := range s.docs {
		if k.database != databaseID || k.collection != collectionID {
			continue
		}
		if docstore.Match(doc, filters) {
			out = append(out, clone(doc))
		}
	}
	docstore.SortNewestFirst(out)
	return out, nil
}

// CreateDocument stores a document without an owner.
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	return s.CreateOwnedDocument(ctx, databaseID, collectionID, documentID, "", fields)
}

// CreateOwnedDocument stores a document recording ownerID as its creator.
func (s *Store) CreateOwnedDocument(ctx context.Context, databaseID, collectionID, documentID, ownerID string, fields map[string]any) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := docstore.ResolveID(documentID)
	if err != nil {
		return nil, err
	}
	if err := docstore.ValidateFields(fields); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{databaseID, collectionID, id}
	if _, exists := s.docs[k]; exists {
		return nil, fmt.Errorf("%w: %s", docstore.ErrAlreadyExists, id)
	}

	now := s.tick()
	doc := &models.Document{
		ID:           id,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		OwnerID:      ownerID,
		Fields:       docstore.CloneFields(fields),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.docs[k] = doc
	return clone(doc), nil
}

// GetDocument returns a copy of the document.
func (s *Store) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key{databaseID, collectionID, documentID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	return clone(doc), nil
}

// UpdateDocument merges fields into the stored document.
func (s *Store) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateFields(fields); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key{databaseID, collectionID, documentID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	doc.UpdatedAt = s.tick()
	return clone(doc), nil
}

// DeleteDocument removes the document.
func (s *Store) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{databaseID, collectionID, documentID}
	if _, ok := s.docs[k]; !ok {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	delete(s.docs, k)
	return nil
}

// tick returns a timestamp strictly after the previous one so ordering is stable.
// Must be called with s.mu held.
func (s *Store) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

func clone(doc *models.Document) *models.Document {
	c := *doc
	c.Fields = docstore.CloneFields(doc.Fields)
	return &c
}
