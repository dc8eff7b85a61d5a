package action

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Options is a string map that remembers insertion order. The zero value is
// ready to use.
type Options struct {
	keys   []string
	values map[string]string
}

// NewOptions builds options from alternating key/value pairs
func NewOptions(pairs ...string) *Options {
	o := &Options{}
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Set(pairs[i], pairs[i+1])
	}
	return o
}

// Get returns the value for key
func (o *Options) Get(key string) (string, bool) {
	if o == nil || o.values == nil {
		return "", false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set stores a value. Existing keys keep their position.
func (o *Options) Set(key, value string) {
	if o.values == nil {
		o.values = make(map[string]string)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Merge copies every entry of other into o
func (o *Options) Merge(other *Options) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		o.Set(k, other.values[k])
	}
}

// Keys returns the keys in insertion order
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Len returns the number of entries
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Clone returns an independent copy
func (o *Options) Clone() *Options {
	c := &Options{}
	c.Merge(o)
	return c
}

// MarshalJSON writes the entries as an object in insertion order
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of primitives, keeping the wire order.
// Booleans and numbers are stored in their JSON text form; null values are
// skipped. Nested objects and arrays are rejected.
func (o *Options) UnmarshalJSON(data []byte) error {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(stdjson.Delim); !ok || d != '{' {
		return fmt.Errorf("options: expected object, got %v", tok)
	}
	*o = Options{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("options: expected key, got %v", kt)
		}
		vt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("options: value of %q: %w", key, err)
		}
		switch v := vt.(type) {
		case string:
			o.Set(key, v)
		case bool:
			o.Set(key, strconv.FormatBool(v))
		case stdjson.Number:
			o.Set(key, v.String())
		case nil:
		default:
			return fmt.Errorf("options: value of %q must be a string, boolean or number, got %v", key, v)
		}
	}
	_, err = dec.Token()
	return err
}
