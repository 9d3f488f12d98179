package docapi

import (
	"github.com/goccy/go-json"
)

// Codec is a connect.Codec marshaling plain structs as JSON.
// It replaces connect's default protobuf JSON codec under the same name.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
