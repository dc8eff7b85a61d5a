package codec

import (
	"fmt"
	"io"

	"diagramd/internal/domain"

	"github.com/goccy/go-json"
)

// JSONCodec handles JSON import/export of model trees in the wire schema
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a model tree from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Element, error) {
	var root domain.Element
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	root.Revision = 0

	if err := Validate(&root); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return &root, nil
}

// Export exports a model tree to JSON
func (c *JSONCodec) Export(root *domain.Element, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(root); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
