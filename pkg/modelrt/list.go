package modelrt

import (
	"encoding/json"
	"iter"
	"slices"
)

// List is an immutable ordered sequence. The zero value is an empty list.
type List[T any] struct {
	items []T
}

// NewList returns a list holding a copy of items.
func NewList[T any](items ...T) List[T] {
	return List[T]{items: slices.Clone(items)}
}

// Len returns the number of elements.
func (l List[T]) Len() int {
	return len(l.items)
}

// At returns the element at index i. It panics when i is out of range.
func (l List[T]) At(i int) T {
	return l.items[i]
}

// All iterates over index/element pairs in order.
func (l List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.items)
}

// Values iterates over the elements in order.
func (l List[T]) Values() iter.Seq[T] {
	return slices.Values(l.items)
}

// Slice returns a copy of the elements.
func (l List[T]) Slice() []T {
	return slices.Clone(l.items)
}

// ToBuilder returns a builder seeded with the elements of l.
func (l List[T]) ToBuilder() ListBuilder[T] {
	return ListBuilder[T]{items: slices.Clone(l.items), set: true}
}

// MarshalJSON encodes the list as a JSON array; an empty list encodes as [].
func (l List[T]) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

// UnmarshalJSON replaces the list with the decoded JSON array.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	l.items = items
	return nil
}

// ListBuilder stages the elements of a List. The zero value is ready to use.
// Elements can only be appended; the staged slice is never handed out.
type ListBuilder[T any] struct {
	items []T
	set   bool
}

// Add appends items in order.
func (b *ListBuilder[T]) Add(items ...T) {
	b.items = append(b.items, items...)
	b.set = true
}

// AddAll appends every element of l in order.
func (b *ListBuilder[T]) AddAll(l List[T]) {
	b.Add(l.items...)
}

// Len returns the number of staged elements.
func (b *ListBuilder[T]) Len() int {
	return len(b.items)
}

// IsSet reports whether the builder has been touched, either by Add or by
// being seeded from an existing List. Nullable fields use it to tell an
// empty list apart from an absent one.
func (b *ListBuilder[T]) IsSet() bool {
	return b.set
}

// Build returns an immutable snapshot of the staged elements.
func (b *ListBuilder[T]) Build() List[T] {
	return List[T]{items: slices.Clone(b.items)}
}

// BuildPtr returns nil when the builder was never touched and a pointer to
// the built list otherwise. Generated code uses it for nullable fields.
func (b *ListBuilder[T]) BuildPtr() *List[T] {
	if !b.set {
		return nil
	}
	l := b.Build()
	return &l
}

// ToListBuilder returns a builder seeded from l, or an untouched builder
// when l is nil.
func ToListBuilder[T any](l *List[T]) ListBuilder[T] {
	if l == nil {
		return ListBuilder[T]{}
	}
	return l.ToBuilder()
}
