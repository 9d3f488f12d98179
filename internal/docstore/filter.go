package docstore

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/mmynk/notekeeper/internal/models"
)

// OwnerAttr is a reserved filter attribute matching Document.OwnerID.
const OwnerAttr = "$owner"

var (
	fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,35}$`)
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,35}$`)
)

// Filter is an equality predicate on a document attribute.
type Filter struct {
	Field string
	Value any
}

// Equal returns a filter matching documents whose field equals value.
func Equal(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Owner returns a filter matching documents created by ownerID.
func Owner(ownerID string) Filter {
	return Filter{Field: OwnerAttr, Value: ownerID}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s == %v", f.Field, f.Value)
}

// ResolveID returns the ID to store a new document under.
// UniqueID and "" produce a fresh UUID; anything else must be a valid custom ID.
func ResolveID(id string) (string, error) {
	if id == "" || id == UniqueID {
		return uuid.New().String(), nil
	}
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

// ValidateFilters checks every filter names a valid attribute.
func ValidateFilters(filters []Filter) error {
	for _, f := range filters {
		if f.Field == OwnerAttr {
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("%w: %s expects a string", ErrInvalidFilter, OwnerAttr)
			}
			continue
		}
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: attribute %q", ErrInvalidFilter, f.Field)
		}
	}
	return nil
}

// ValidateFields checks every attribute name of a document body.
func ValidateFields(fields map[string]any) error {
	for name := range fields {
		if !fieldPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidField, name)
		}
	}
	return nil
}

// Match reports whether doc satisfies every filter.
func Match(doc *models.Document, filters []Filter) bool {
	for _, f := range filters {
		if f.Field == OwnerAttr {
			if owner, _ := f.Value.(string); doc.OwnerID != owner {
				return false
			}
			continue
		}
		v, ok := doc.Fields[f.Field]
		if !ok || !valuesEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// SortNewestFirst orders documents by creation time, most recent first.
func SortNewestFirst(docs []*models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

// valuesEqual compares decoded JSON values; numbers compare by value regardless of Go type.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// CloneFields returns a shallow copy of a document body.
func CloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
