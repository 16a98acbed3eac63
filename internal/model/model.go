// Package model holds the resolved descriptors the analyzer produces and
// the emitter consumes.
package model

import (
	"fmt"
	"modelgen/internal/decl"
)

// Kind is the semantic tag of a field type.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindSequence
	KindMap
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindReference:
		return "reference"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ScalarType is one of the four primitive field types.
type ScalarType int

const (
	ScalarString ScalarType = iota + 1
	ScalarInt
	ScalarFloat
	ScalarBool
)

// GoName returns the Go spelling of the scalar type.
func (s ScalarType) GoName() string {
	switch s {
	case ScalarString:
		return "string"
	case ScalarInt:
		return "int"
	case ScalarFloat:
		return "float64"
	case ScalarBool:
		return "bool"
	}
	return ""
}

func (s ScalarType) String() string {
	if n := s.GoName(); n != "" {
		return n
	}
	return fmt.Sprintf("ScalarType(%d)", int(s))
}

// ScalarByName maps a Go predeclared type name to its scalar type.
func ScalarByName(name string) (ScalarType, bool) {
	switch name {
	case "string":
		return ScalarString, true
	case "int":
		return ScalarInt, true
	case "float64":
		return ScalarFloat, true
	case "bool":
		return ScalarBool, true
	}
	return 0, false
}

// Ref names another model or imported type.
type Ref struct {
	Package    string // qualifier as written in generated code, empty for same package
	Name       string // type name, sigil stripped for same-package models
	ImportPath string // rewritten import path, empty for same package
}

// Type is a classified field type.
type Type struct {
	Kind   Kind
	Scalar ScalarType // KindScalar
	Elem   *Type      // KindSequence
	Key    *Type      // KindMap
	Value  *Type      // KindMap
	Ref    Ref        // KindReference
}

// Scalar returns a scalar type.
func Scalar(s ScalarType) Type {
	return Type{Kind: KindScalar, Scalar: s}
}

// Sequence returns an ordered sequence of elem.
func Sequence(elem Type) Type {
	return Type{Kind: KindSequence, Elem: &elem}
}

// Map returns a keyed map.
func Map(key, value Type) Type {
	return Type{Kind: KindMap, Key: &key, Value: &value}
}

// Reference returns a model reference.
func Reference(ref Ref) Type {
	return Type{Kind: KindReference, Ref: ref}
}

// IsContainer reports whether the type is a sequence or map.
func (t Type) IsContainer() bool {
	return t.Kind == KindSequence || t.Kind == KindMap
}

func (t Type) String() string {
	switch t.Kind {
	case KindScalar:
		return t.Scalar.String()
	case KindSequence:
		return fmt.Sprintf("List[%s]", t.Elem)
	case KindMap:
		return fmt.Sprintf("Map[%s, %s]", t.Key, t.Value)
	case KindReference:
		if t.Ref.Package != "" {
			return t.Ref.Package + "." + t.Ref.Name
		}
		return t.Ref.Name
	}
	return "invalid"
}

// Literal is one decoded default token. Value holds the decoded string for
// strings and the canonical Go token for the other scalars.
type Literal struct {
	Type  ScalarType
	Value string
}

// Entry is one key/value pair of a map default.
type Entry struct {
	Key   Literal
	Value Literal
}

// Default is a resolved default value. Exactly one of the shapes is set.
type Default struct {
	Scalar   *Literal
	Elements []Literal
	Entries  []Entry
	shape    Kind
}

// ScalarDefault returns a scalar default.
func ScalarDefault(l Literal) *Default {
	return &Default{Scalar: &l, shape: KindScalar}
}

// SequenceDefault returns a sequence default.
func SequenceDefault(elems ...Literal) *Default {
	return &Default{Elements: elems, shape: KindSequence}
}

// MapDefault returns a map default.
func MapDefault(entries ...Entry) *Default {
	return &Default{Entries: entries, shape: KindMap}
}

// Shape returns the kind of literal the default holds.
func (d *Default) Shape() Kind {
	return d.shape
}

// Field is the descriptor of one declared field.
type Field struct {
	Name                     string
	WireName                 string
	Type                     Type
	Default                  *Default
	ExcludeFromSerialization bool
	Doc                      string
	Pos                      decl.Pos
}

// Nullable reports whether the generated accessor may return nil. A field
// is nullable exactly when it has no default.
func (f Field) Nullable() bool {
	return f.Default == nil
}

// CheckShape verifies that the default agrees with the field type.
func (f Field) CheckShape() error {
	d := f.Default
	if d == nil {
		return nil
	}
	if d.shape != f.Type.Kind {
		return fmt.Errorf("%s default for %s field", d.shape, f.Type.Kind)
	}
	switch d.shape {
	case KindScalar:
		return checkLiteral(*d.Scalar, f.Type)
	case KindSequence:
		for i, l := range d.Elements {
			if err := checkLiteral(l, *f.Type.Elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	case KindMap:
		for i, e := range d.Entries {
			if err := checkLiteral(e.Key, *f.Type.Key); err != nil {
				return fmt.Errorf("entry %d key: %w", i, err)
			}
			if err := checkLiteral(e.Value, *f.Type.Value); err != nil {
				return fmt.Errorf("entry %d value: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%s fields cannot carry a default", d.shape)
	}
	return nil
}

func checkLiteral(l Literal, t Type) error {
	if t.Kind != KindScalar {
		return fmt.Errorf("%s literal for %s", l.Type, t)
	}
	if l.Type != t.Scalar {
		return fmt.Errorf("%s literal for %s", l.Type, t.Scalar)
	}
	return nil
}

// Import is one import the generated file needs.
type Import struct {
	Alias string // empty when the default package name applies
	Path  string
}

// Model is the analyzed form of a declaration.
type Model struct {
	Name         string // generated type name
	TemplateName string
	Package      string
	ImportPath   string // of the generated package; empty outside a module
	File         string // template base name
	Doc          string
	Fields       []Field
	Imports      []Import
}

// BindingName is the name the model's serializer registers under. It is
// qualified by the import path of the generated package so models of
// packages sharing a name stay apart in one registry.
func (m *Model) BindingName() string {
	qualifier := m.ImportPath
	if qualifier == "" {
		qualifier = m.Package
	}
	return qualifier + "." + m.Name
}

// HasDefaults reports whether any field carries a default.
func (m *Model) HasDefaults() bool {
	for _, f := range m.Fields {
		if f.Default != nil {
			return true
		}
	}
	return false
}
