package docapi

import (
	"fmt"
	"time"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

// QueryEqual is the only supported query method.
const QueryEqual = "equal"

// Query is a filter on a document attribute.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute"`
	Values    []any  `json:"values"`
}

// Document is the wire form of a stored document.
type Document struct {
	ID           string         `json:"$id"`
	DatabaseID   string         `json:"$databaseId"`
	CollectionID string         `json:"$collectionId"`
	OwnerID      string         `json:"$owner,omitempty"`
	CreatedAt    time.Time      `json:"$createdAt"`
	UpdatedAt    time.Time      `json:"$updatedAt"`
	Data         map[string]any `json:"data"`
}

type ListDocumentsRequest struct {
	DatabaseID   string  `json:"databaseId"`
	CollectionID string  `json:"collectionId"`
	Queries      []Query `json:"queries,omitempty"`
}

type ListDocumentsResponse struct {
	Total     int         `json:"total"`
	Documents []*Document `json:"documents"`
}

type CreateDocumentRequest struct {
	DatabaseID   string         `json:"databaseId"`
	CollectionID string         `json:"collectionId"`
	DocumentID   string         `json:"documentId"`
	Data         map[string]any `json:"data"`
}

type CreateDocumentResponse struct {
	Document *Document `json:"document"`
}

type GetDocumentRequest struct {
	DatabaseID   string `json:"databaseId"`
	CollectionID string `json:"collectionId"`
	DocumentID   string `json:"documentId"`
}

type GetDocumentResponse struct {
	Document *Document `json:"document"`
}

type UpdateDocumentRequest struct {
	DatabaseID   string         `json:"databaseId"`
	CollectionID string         `json:"collectionId"`
	DocumentID   string         `json:"documentId"`
	Data         map[string]any `json:"data"`
}

type UpdateDocumentResponse struct {
	Document *Document `json:"document"`
}

type DeleteDocumentRequest struct {
	DatabaseID   string `json:"databaseId"`
	CollectionID string `json:"collectionId"`
	DocumentID   string `json:"documentId"`
}

type DeleteDocumentResponse struct{}

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Equal builds an equality query.
func Equal(attribute string, value any) Query {
	return Query{Method: QueryEqual, Attribute: attribute, Values: []any{value}}
}

// QueriesFromFilters converts store filters to wire queries.
func QueriesFromFilters(filters []docstore.Filter) []Query {
	if len(filters) == 0 {
		return nil
	}
	out := make([]Query, len(filters))
	for i, f := range filters {
		out[i] = Equal(f.Field, f.Value)
	}
	return out
}

// FiltersFromQueries converts wire queries to store filters.
// Only single-valued equality queries are accepted.
func FiltersFromQueries(queries []Query) ([]docstore.Filter, error) {
	out := make([]docstore.Filter, 0, len(queries))
	for _, q := range queries {
		if q.Method != QueryEqual {
			return nil, fmt.Errorf("%w: unsupported query method %q", docstore.ErrInvalidFilter, q.Method)
		}
		if len(q.Values) != 1 {
			return nil, fmt.Errorf("%w: %s expects exactly one value", docstore.ErrInvalidFilter, q.Attribute)
		}
		out = append(out, docstore.Equal(q.Attribute, q.Values[0]))
	}
	return out, nil
}

// FromModel converts a stored document to its wire form.
func FromModel(doc *models.Document) *Document {
	return &Document{
		ID:           doc.ID,
		DatabaseID:   doc.DatabaseID,
		CollectionID: doc.CollectionID,
		OwnerID:      doc.OwnerID,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		Data:         doc.Fields,
	}
}

// Model converts the wire form back to a stored document.
func (d *Document) Model() *models.Document {
	fields := d.Data
	if fields == nil {
		fields = map[string]any{}
	}
	return &models.Document{
		ID:           d.ID,
		DatabaseID:   d.DatabaseID,
		CollectionID: d.CollectionID,
		OwnerID:      d.OwnerID,
		Fields:       fields,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserFromModel converts an account to its public view.
func UserFromModel(u *models.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
