// Package decl defines the parsed-declaration tree the generator stages
// consume. The front end builds it from template sources; validation,
// analysis and emission only ever see these plain values.
package decl

import (
	"fmt"
	"modelgen/internal/naming"
)

// Pos is a source position.
type Pos struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position carries a line.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	switch {
	case p.File == "":
		return "-"
	case !p.IsValid():
		return p.File
	case p.Column == 0:
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Import is one import spec of a template file.
type Import struct {
	Name string // explicit alias, empty when none
	Path string
	Pos  Pos
}

// LocalName is the identifier the importing file refers to the package by.
func (i Import) LocalName() string {
	if i.Name != "" {
		return i.Name
	}
	return naming.PackageAlias(i.Path)
}

// File is one parsed template source file.
type File struct {
	Path       string
	Package    string
	ImportPath string // import path of the template package, may be empty
	Imports    []Import
	Decls      []Declaration
	Tagged     bool // carries the template build constraint
}

// Shape tells struct declarations apart from other annotated types.
type Shape int

const (
	ShapeStruct Shape = iota
	ShapeOther
)

// Declaration is one annotated model template.
type Declaration struct {
	Name       string
	Package    string
	ImportPath string
	Dir        string // slash separated, relative to the pass root
	File       string // base name of the template file
	Shape      Shape
	Members    []Member
	Imports    []Import
	Doc        string
	Pos        Pos
}

// Fields returns the plain field members in declaration order.
func (d *Declaration) Fields() []Member {
	var fields []Member
	for _, m := range d.Members {
		if m.Kind == MemberField {
			fields = append(fields, m)
		}
	}
	return fields
}

// MemberKind classifies a declaration member.
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberEmbedded
	MemberGetter
	MemberSetter
	MemberMethod
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberEmbedded:
		return "embedded field"
	case MemberGetter:
		return "getter"
	case MemberSetter:
		return "setter"
	case MemberMethod:
		return "method"
	}
	return fmt.Sprintf("MemberKind(%d)", int(k))
}

// Member is one field or method of a declaration.
type Member struct {
	Kind    MemberKind
	Name    string
	Type    TypeExpr
	Options FieldOptions
	Tag     string // raw struct tag without backquotes
	Doc     string
	Pos     Pos
}

// FieldOptions is the typed form of a field's struct tag.
type FieldOptions struct {
	Default   *string  // raw default literal, nil when absent
	WireName  string   // json key override
	Exclude   bool     // excluded from serialization
	Modifiers []string // static, const, final
	Unknown   []string // model tag options that mean nothing
}

// TypeKind classifies a type expression.
type TypeKind int

const (
	TypeNamed TypeKind = iota
	TypeSlice
	TypeArray
	TypeMap
	TypePointer
	TypeOther
)

// TypeExpr is a syntactic type. Named types carry an optional package
// qualifier and type arguments; composite types carry Elem and Key.
type TypeExpr struct {
	Kind    TypeKind
	Package string
	Name    string
	Args    []TypeExpr
	Elem    *TypeExpr
	Key     *TypeExpr
	Text    string // source rendering
}

func (t TypeExpr) String() string {
	return t.Text
}

// IsQualified reports whether a named type lives in another package.
func (t TypeExpr) IsQualified() bool {
	return t.Kind == TypeNamed && t.Package != ""
}
