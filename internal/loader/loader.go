// Package loader reads graph files from disk.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"diagramd/internal/codec"
	"diagramd/internal/domain"
)

// FormatOf returns the graph format implied by a file extension
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// LoadGraph reads a model tree from a .json, .yaml or .yml file
func LoadGraph(path string) (*domain.Element, error) {
	importer, _, err := codec.ForFormat(FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	root, err := importer.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return root, nil
}

// SaveGraph writes a model tree in the format implied by the file extension
func SaveGraph(path string, root *domain.Element) error {
	_, exporter, err := codec.ForFormat(FormatOf(path))
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := exporter.Export(root, &buf); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
