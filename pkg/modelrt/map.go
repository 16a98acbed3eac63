package modelrt

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Map is an immutable map that remembers insertion order. The zero value is
// an empty map.
type Map[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	return len(m.keys)
}

// Get returns the value stored under k.
func (m Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m Map[K, V]) Keys() []K {
	return slices.Clone(m.keys)
}

// All iterates over the entries in insertion order.
func (m Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// ToBuilder returns a builder seeded with the entries of m.
func (m Map[K, V]) ToBuilder() MapBuilder[K, V] {
	return MapBuilder[K, V]{keys: slices.Clone(m.keys), values: maps.Clone(m.values), set: true}
}

// MarshalJSON encodes the map as a JSON object whose members follow
// insertion order.
func (m Map[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeKey(k)
		if err != nil {
			return nil, err
		}
		quoted, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(quoted)
		buf.WriteByte(':')
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("modelrt: encode map value for key %q: %w", key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the map with the decoded JSON object, keeping the
// member order of the input.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = Map[K, V]{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("modelrt: expected JSON object, got %v", tok)
	}
	var b MapBuilder[K, V]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		raw, ok := tok.(string)
		if !ok {
			return fmt.Errorf("modelrt: expected object key, got %v", tok)
		}
		k, err := decodeKey[K](raw)
		if err != nil {
			return err
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("modelrt: decode map value for key %q: %w", raw, err)
		}
		b.Put(k, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = b.Build()
	return nil
}

func encodeKey[K comparable](k K) (string, error) {
	switch v := any(k).(type) {
	case string:
		return v, nil
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		return string(text), err
	default:
		return fmt.Sprint(v), nil
	}
}

func decodeKey[K comparable](raw string) (K, error) {
	var k K
	switch p := any(&k).(type) {
	case *string:
		*p = raw
		return k, nil
	case encoding.TextUnmarshaler:
		err := p.UnmarshalText([]byte(raw))
		return k, err
	}
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return k, fmt.Errorf("modelrt: decode map key %q: %w", raw, err)
	}
	return k, nil
}

// MapBuilder stages the entries of a Map. The zero value is ready to use.
// Put on an existing key replaces its value and keeps its position.
type MapBuilder[K comparable, V any] struct {
	keys   []K
	values map[K]V
	set    bool
}

// Put stores v under k.
func (b *MapBuilder[K, V]) Put(k K, v V) {
	if b.values == nil {
		b.values = make(map[K]V)
	}
	if _, ok := b.values[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.values[k] = v
	b.set = true
}

// PutAll stores every entry of m in its insertion order.
func (b *MapBuilder[K, V]) PutAll(m Map[K, V]) {
	for k, v := range m.All() {
		b.Put(k, v)
	}
	b.set = true
}

// Len returns the number of staged entries.
func (b *MapBuilder[K, V]) Len() int {
	return len(b.keys)
}

// IsSet reports whether the builder has been touched.
func (b *MapBuilder[K, V]) IsSet() bool {
	return b.set
}

// Build returns an immutable snapshot of the staged entries.
func (b *MapBuilder[K, V]) Build() Map[K, V] {
	return Map[K, V]{keys: slices.Clone(b.keys), values: maps.Clone(b.values)}
}

// BuildPtr returns nil when the builder was never touched and a pointer to
// the built map otherwise.
func (b *MapBuilder[K, V]) BuildPtr() *Map[K, V] {
	if !b.set {
		return nil
	}
	m := b.Build()
	return &m
}

// ToMapBuilder returns a builder seeded from m, or an untouched builder
// when m is nil.
func ToMapBuilder[K comparable, V any](m *Map[K, V]) MapBuilder[K, V] {
	if m == nil {
		return MapBuilder[K, V]{}
	}
	return m.ToBuilder()
}
