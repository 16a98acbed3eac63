package modelrt

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when a type-erased serializer receives a value
// of a type it is not bound to.
var ErrTypeMismatch = errors.New("modelrt: value type does not match serializer")

// Serializer round-trips one model type to and from its textual encoding.
type Serializer[T any] interface {
	TypeName() string
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// AnySerializer is the type-erased view of a Serializer used by the
// registry. Persistence and cache layers that only know a type name work
// through it.
type AnySerializer interface {
	TypeName() string
	MarshalAny(v any) ([]byte, error)
	UnmarshalAny(data []byte) (any, error)
}

// JSONSerializer encodes a model with encoding/json. Generated models
// implement json.Marshaler and json.Unmarshaler, so the encoding honours
// their wire names and excluded fields.
type JSONSerializer[T any] struct {
	name string
}

// NewJSONSerializer returns a serializer bound to the given type name.
func NewJSONSerializer[T any](name string) *JSONSerializer[T] {
	return &JSONSerializer[T]{name: name}
}

// TypeName returns the bound type name.
func (s *JSONSerializer[T]) TypeName() string {
	return s.name
}

// Marshal encodes v.
func (s *JSONSerializer[T]) Marshal(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("modelrt: marshal %s: %w", s.name, err)
	}
	return data, nil
}

// Unmarshal decodes data into a new T.
func (s *JSONSerializer[T]) Unmarshal(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("modelrt: unmarshal %s: %w", s.name, err)
	}
	return v, nil
}

// MarshalAny encodes v, which must be a T.
func (s *JSONSerializer[T]) MarshalAny(v any) ([]byte, error) {
	typed, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("%w: %s got %T", ErrTypeMismatch, s.name, v)
	}
	return s.Marshal(typed)
}

// UnmarshalAny decodes data into a T returned as any.
func (s *JSONSerializer[T]) UnmarshalAny(data []byte) (any, error) {
	return s.Unmarshal(data)
}
