package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Metadata is an insertion-ordered set of unique keys with values.
// The zero value is empty and ready to use.
type Metadata struct {
	keys   []string
	values map[string]any
}

// NewMetadata creates a Metadata from alternating key/value pairs.
// A non-string key or a trailing key without value panics.
func NewMetadata(kv ...any) Metadata {
	if len(kv)%2 != 0 {
		panic("core: NewMetadata requires key/value pairs")
	}
	var m Metadata
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("core: metadata key %v is not a string", kv[i]))
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// Set stores value under key. Existing keys keep their position.
func (m *Metadata) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (m Metadata) GetString(key string) (string, bool) {
	v, ok := m.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of keys.
func (m Metadata) Len() int {
	return len(m.keys)
}

// Clone returns a shallow copy that can be modified independently.
func (m Metadata) Clone() Metadata {
	var out Metadata
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// Map returns the metadata as a plain map. Order is lost.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = m.values[k]
	}
	return out
}

// Require returns an error naming every key that is absent.
func (m Metadata) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := m.values[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingMetadata, missing)
	}
	return nil
}

// MarshalJSON encodes the metadata as a JSON object in key order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = Metadata{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}
	out := Metadata{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata: expected key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("metadata key %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
