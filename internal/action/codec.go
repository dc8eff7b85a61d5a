package action

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
)

// ErrUnknownKind is returned by Registry.New for kinds nobody registered
var ErrUnknownKind = errors.New("unknown action kind")

// UnknownAction holds an action whose kind is not registered. The server
// ignores it; the codec writes it back unchanged.
type UnknownAction struct {
	KindName string
	Raw      json.RawMessage
}

func (a *UnknownAction) Kind() string { return a.KindName }

// Registry maps wire kinds to action constructors
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Action
}

// NewRegistry creates a registry holding the built-in actions
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]func() Action)}
	r.Register(KindRequestModel, func() Action { return &RequestModelAction{} })
	r.Register(KindSetModel, func() Action { return &SetModelAction{} })
	r.Register(KindUpdateModel, func() Action { return &UpdateModelAction{} })
	r.Register(KindRequestBounds, func() Action { return &RequestBoundsAction{} })
	r.Register(KindComputedBounds, func() Action { return &ComputedBoundsAction{} })
	r.Register(KindRequestPopupModel, func() Action { return &RequestPopupModelAction{} })
	r.Register(KindSetPopupModel, func() Action { return &SetPopupModelAction{} })
	r.Register(KindSelect, func() Action { return &SelectAction{} })
	r.Register(KindSelectAll, func() Action { return &SelectAllAction{} })
	r.Register(KindGetSelection, func() Action { return &GetSelectionAction{} })
	r.Register(KindSelectionResult, func() Action { return &SelectionResult{} })
	r.Register(KindCollapseExpand, func() Action { return &CollapseExpandAction{} })
	r.Register(KindCollapseExpandAll, func() Action { return &CollapseExpandAllAction{} })
	r.Register(KindOpen, func() Action { return &OpenAction{} })
	r.Register(KindLayout, func() Action { return &LayoutAction{} })
	r.Register(KindReject, func() Action { return &RejectAction{} })
	r.Register(KindServerStatus, func() Action { return &ServerStatusAction{} })
	r.Register(KindFitToScreen, func() Action { return &FitToScreenAction{} })
	return r
}

// Register adds or replaces the constructor for a kind
func (r *Registry) Register(kind string, factory func() Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// New returns an empty action of the given kind
func (r *Registry) New(kind string) (Action, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory(), nil
}

// Codec encodes and decodes action messages as JSON
type Codec struct {
	registry *Registry
}

// NewCodec creates a codec backed by the given registry
func NewCodec(registry *Registry) *Codec {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Codec{registry: registry}
}

// Registry returns the codec's kind registry
func (c *Codec) Registry() *Registry {
	return c.registry
}

type envelope struct {
	ClientID string          `json:"clientId"`
	Action   json.RawMessage `json:"action"`
}

type kindProbe struct {
	Kind string `json:"kind"`
}

// EncodeAction marshals a single action with its kind field
func (c *Codec) EncodeAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, errors.New("encode action: nil action")
	}
	if u, ok := a.(*UnknownAction); ok {
		return u.Raw, nil
	}
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode action %s: %w", a.Kind(), err)
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode action %s: not a JSON object", a.Kind())
	}
	kind, err := json.Marshal(a.Kind())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(kind) + 10)
	buf.WriteString(`{"kind":`)
	buf.Write(kind)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeAction unmarshals a single action. Unregistered kinds decode to an
// UnknownAction.
func (c *Codec) DecodeAction(data []byte) (Action, error) {
	var probe kindProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	if probe.Kind == "" {
		return nil, errors.New("decode action: missing kind")
	}
	a, err := c.registry.New(probe.Kind)
	if errors.Is(err, ErrUnknownKind) {
		return &UnknownAction{KindName: probe.Kind, Raw: append(json.RawMessage(nil), data...)}, nil
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode action %s: %w", probe.Kind, err)
	}
	return a, nil
}

// Encode marshals a message envelope
func (c *Codec) Encode(msg Message) ([]byte, error) {
	body, err := c.EncodeAction(msg.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{ClientID: msg.ClientID, Action: body})
}

// Decode unmarshals a message envelope
func (c *Codec) Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if len(env.Action) == 0 {
		return Message{}, errors.New("decode message: missing action")
	}
	a, err := c.DecodeAction(env.Action)
	if err != nil {
		return Message{}, err
	}
	return Message{ClientID: env.ClientID, Action: a}, nil
}
