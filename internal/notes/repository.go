// Package notes maps note operations onto a document store.
//
// Notes live in one collection; each document carries the note text and the
// owning user's ID in the user_id attribute, which scopes every listing.
package notes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

// Repository is the note data access layer. It holds no state of its own.
type Repository struct {
	store        docstore.Store
	databaseID   string
	collectionID string
	logger       *slog.Logger
}

// NewRepository creates a repository over the given collection. A nil logger
// logs to slog.Default().
func NewRepository(store docstore.Store, databaseID, collectionID string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		logger:       logger.With("collection_id", collectionID),
	}
}

// List returns the notes owned by ownerID, newest first.
// Documents with a different owner are dropped even if the store returns them.
func (r *Repository) List(ctx context.Context, ownerID string) ([]models.Note, error) {
	docs, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID,
		docstore.Equal(models.NoteOwnerField, ownerID))
	if err != nil {
		r.logger.Error("Error fetching notes", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := make([]models.Note, 0, len(docs))
	for _, doc := range docs {
		note := models.NoteFromDocument(doc)
		if note.OwnerID != ownerID {
			r.logger.Warn("Dropping note with foreign owner",
				"note_id", note.ID,
				"user_id", ownerID,
				"owner_id", note.OwnerID,
			)
			continue
		}
		notes = append(notes, note)
	}

	r.logger.Debug("Notes fetched", "user_id", ownerID, "count", len(notes))
	return notes, nil
}

// ListOrEmpty is List for callers that treat a failed read as "no notes".
// The failure is logged and an empty, non-nil slice returned.
func (r *Repository) ListOrEmpty(ctx context.Context, ownerID string) []models.Note {
	notes, err := r.List(ctx, ownerID)
	if err != nil {
		return []models.Note{}
	}
	return notes
}

// Create stores a new note for ownerID and returns it with its assigned ID.
// The text is not validated.
func (r *Repository) Create(ctx context.Context, text, ownerID string) (*models.Note, error) {
	doc, err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, docstore.UniqueID,
		models.NoteFields(text, ownerID))
	if err != nil {
		r.logger.Error("Error adding note", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	note := models.NoteFromDocument(doc)
	r.logger.Info("Note created", "note_id", note.ID, "user_id", ownerID)
	return &note, nil
}

// Get returns a single note.
func (r *Repository) Get(ctx context.Context, noteID string) (*models.Note, error) {
	doc, err := r.store.GetDocument(ctx, r.databaseID, r.collectionID, noteID)
	if err != nil {
		r.logger.Error("Error fetching note", "note_id", noteID, "error", err)
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	note := models.NoteFromDocument(doc)
	return &note, nil
}

// Update replaces the text of a note, leaving its other attributes as they are.
func (r *Repository) Update(ctx context.Context, noteID, text string) (*models.Note, error) {
	doc, err := r.store.UpdateDocument(ctx, r.databaseID, r.collectionID, noteID,
		map[string]any{models.NoteTextField: text})
	if err != nil {
		r.logger.Error("Error updating note", "note_id", noteID, "error", err)
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	note := models.NoteFromDocument(doc)
	r.logger.Info("Note updated", "note_id", note.ID)
	return &note, nil
}

// Delete removes a note. Deleting an unknown note returns an error matching
// docstore.ErrNotFound.
func (r *Repository) Delete(ctx context.Context, noteID string) error {
	if err := r.store.DeleteDocument(ctx, r.databaseID, r.collectionID, noteID); err != nil {
		r.logger.Error("Error deleting note", "note_id", noteID, "error", err)
		return fmt.Errorf("failed to delete note: %w", err)
	}

	r.logger.Info("Note deleted", "note_id", noteID)
	return nil
}
