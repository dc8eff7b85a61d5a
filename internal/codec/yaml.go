package codec

import (
	"fmt"
	"io"

	"diagramd/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export.
//
// Besides the plain element tree it accepts a flat form, where nodes and
// edges are listed instead of children:
//
//	id: graph
//	nodes:
//	  - id: a
//	    label: Alpha
//	edges:
//	  - from_id: a
//	    to_id: b
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlGraph is a tree document optionally carrying flat node and edge lists
type yamlGraph struct {
	domain.Element `yaml:",inline"`
	Nodes          []yamlNode `yaml:"nodes,omitempty"`
	Edges          []yamlEdge `yaml:"edges,omitempty"`
}

type yamlNode struct {
	ID       string            `yaml:"id"`
	Type     string            `yaml:"type,omitempty"`
	Label    string            `yaml:"label,omitempty"`
	Position *domain.Point     `yaml:"position,omitempty"`
	Size     *domain.Dimension `yaml:"size,omitempty"`
}

type yamlEdge struct {
	ID     string `yaml:"id,omitempty"`
	FromID string `yaml:"from_id"`
	ToID   string `yaml:"to_id"`
	Type   string `yaml:"type,omitempty"`
}

// Parse imports a model tree from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Element, error) {
	var yg yamlGraph
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	root := yg.Element
	if root.Type == "" {
		root.Type = domain.TypeGraph
	}
	if root.ID == "" {
		root.ID = domain.TypeGraph
	}

	for _, yn := range yg.Nodes {
		root.Add(yn.element())
	}
	for i, ye := range yg.Edges {
		edgeType := ye.Type
		if edgeType == "" {
			edgeType = domain.TypeEdge
		}
		id := ye.ID
		if id == "" {
			id = fmt.Sprintf("edge_%s_%s_%d", ye.FromID, ye.ToID, i)
		}
		root.Add(&domain.Element{Type: edgeType, ID: id, SourceID: ye.FromID, TargetID: ye.ToID})
	}

	if err := Validate(&root); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return &root, nil
}

func (yn yamlNode) element() *domain.Element {
	nodeType := yn.Type
	if nodeType == "" {
		nodeType = domain.TypeNode
	}
	size := yn.Size
	if size == nil {
		size = domain.NewDimension(60, 60)
	}
	n := &domain.Element{Type: nodeType, ID: yn.ID, Position: yn.Position, Size: size}
	if yn.Label != "" {
		n.Add(&domain.Element{Type: domain.TypeLabel, ID: yn.ID + "_label", Text: yn.Label})
	}
	return n
}

// Export exports a model tree to YAML in tree form
func (c *YAMLCodec) Export(root *domain.Element, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(root); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
