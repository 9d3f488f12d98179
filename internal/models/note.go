package models

import "time"

// Attribute names of a note document.
const (
	NoteTextField  = "text"
	NoteOwnerField = "user_id"
)

// Note is a short text record owned by a single user.
type Note struct {
	// ID is the opaque identifier assigned by the document store.
	ID string `json:"id" yaml:"id"`

	// OwnerID is the ID of the user the note belongs to.
	OwnerID string `json:"user_id" yaml:"user_id"`

	// Text is the note content. It is not validated locally.
	Text string `json:"text" yaml:"text"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NoteFromDocument maps a stored document onto a Note.
func NoteFromDocument(doc *Document) Note {
	return Note{
		ID:        doc.ID,
		OwnerID:   doc.String(NoteOwnerField),
		Text:      doc.String(NoteTextField),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// NoteFields returns the document attributes for a new note.
func NoteFields(text, ownerID string) map[string]any {
	return map[string]any{
		NoteTextField:  text,
		NoteOwnerField: ownerID,
	}
}
