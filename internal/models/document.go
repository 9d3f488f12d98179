package models

import "time"

// Document is a schemaless record held by the document store.
// Documents are addressed by (DatabaseID, CollectionID, ID).
type Document struct {
	// ID is assigned by the store unless the caller supplies a custom one.
	ID string

	DatabaseID   string
	CollectionID string

	// OwnerID is the principal that created the document.
	// The document service uses it for permission checks; direct adapters may leave it empty.
	OwnerID string

	// Fields holds the user-defined attributes.
	Fields map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// String returns the named field when it holds a string, or "".
func (d *Document) String(field string) string {
	if d == nil || d.Fields == nil {
		return ""
	}
	s, _ := d.Fields[field].(string)
	return s
}
