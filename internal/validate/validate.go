// Package validate enforces the authoring rules of model templates. It runs
// before any analysis or output, and collects every violation of a
// declaration instead of stopping at the first.
package validate

import (
	"fmt"
	"modelgen/internal/decl"
	"modelgen/internal/diag"
	"modelgen/internal/logging"
	"modelgen/internal/model"
	"modelgen/internal/naming"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Rules parameterizes the checks.
type Rules struct {
	Sigil          string // template name prefix
	RuntimePath    string // import path of the runtime container types
	SequencePrefix string // runtime type name prefix of ordered sequences
	MapPrefix      string // runtime type name prefix of keyed maps
}

// DefaultRules returns the rules matching the default configuration.
func DefaultRules() Rules {
	return Rules{
		Sigil:          "_",
		RuntimePath:    naming.DefaultPolicy().RuntimePrefix,
		SequencePrefix: "List",
		MapPrefix:      "Map",
	}
}

// reserved names are taken by generated methods.
var reserved = map[string]bool{
	"Build":         true,
	"ToBuilder":     true,
	"Rebuild":       true,
	"Serializer":    true,
	"MarshalJSON":   true,
	"UnmarshalJSON": true,
}

// RuntimeAlias returns the name a file refers to the runtime package by,
// or "" when the file does not import it.
func (r Rules) RuntimeAlias(imports []decl.Import) string {
	for _, imp := range imports {
		if imp.Path == r.RuntimePath {
			return imp.LocalName()
		}
	}
	return ""
}

// Container reports whether t names a runtime container: KindSequence,
// KindMap, or 0 for anything else. Containers are recognized by name prefix
// regardless of their type arguments.
func (r Rules) Container(t decl.TypeExpr, runtimeAlias string) model.Kind {
	if t.Kind != decl.TypeNamed || runtimeAlias == "" || t.Package != runtimeAlias {
		return 0
	}
	switch {
	case strings.HasPrefix(t.Name, r.SequencePrefix):
		return model.KindSequence
	case strings.HasPrefix(t.Name, r.MapPrefix):
		return model.KindMap
	}
	return 0
}

// Validate checks d. The returned error is a diag.List when any rule is
// broken.
func Validate(d *decl.Declaration, rules Rules) error {
	v := &validator{d: d, rules: rules, alias: rules.RuntimeAlias(d.Imports), wires: make(map[string]string)}
	v.checkName()
	if d.Shape != decl.ShapeStruct {
		v.report(diag.CodeNotAStruct, "", d.Pos,
			"remove the //modelgen:model directive or declare a struct",
			"%s is not a struct type", d.Name)
		return v.errs.Err()
	}
	seen := make(map[string]string)
	for _, m := range d.Members {
		switch m.Kind {
		case decl.MemberGetter, decl.MemberSetter:
			v.report(diag.CodeExplicitAccessor, m.Name, m.Pos,
				"delete the method; the generated type provides accessors and a builder",
				"explicit %s %s", m.Kind, m.Name)
		case decl.MemberMethod:
			v.report(diag.CodeMethod, m.Name, m.Pos,
				"move the logic into a function over the generated type",
				"templates may only declare fields, found method %s", m.Name)
		case decl.MemberEmbedded:
			v.report(diag.CodeEmbeddedField, m.Name, m.Pos,
				"declare the field with a name, e.g. "+naming.StripSigil(m.Name, rules.Sigil)+" "+m.Type.Text,
				"embedded field %s", m.Type.Text)
		case decl.MemberField:
			v.checkField(m, seen)
		}
	}
	if err := v.errs.Err(); err != nil {
		logging.ValidateDebug("%s rejected with %d problems", d.Name, len(v.errs))
		return err
	}
	logging.ValidateDebug("%s ok", d.Name)
	return nil
}

type validator struct {
	d     *decl.Declaration
	rules Rules
	alias string
	wires map[string]string // wire name -> field
	errs  diag.List
}

func (v *validator) report(code diag.Code, member string, pos decl.Pos, suggestion, format string, args ...any) {
	v.errs = append(v.errs, diag.Validation(code, v.d.Name, member, pos, suggestion, format, args...))
}

func (v *validator) checkName() {
	name := v.d.Name
	sigil := v.rules.Sigil
	if !strings.HasPrefix(name, sigil) {
		v.report(diag.CodeNamingConvention, "", v.d.Pos,
			fmt.Sprintf("rename the template to %s%s", sigil, name),
			"template name %s must start with %q", name, sigil)
		return
	}
	if !isExported(strings.TrimPrefix(name, sigil)) {
		v.report(diag.CodeNamingConvention, "", v.d.Pos,
			fmt.Sprintf("rename the template to %s%s", sigil, naming.CapitalizeFirst(strings.TrimPrefix(name, sigil))),
			"generated name %s must be exported", strings.TrimPrefix(name, sigil))
	}
}

func (v *validator) checkField(m decl.Member, seen map[string]string) {
	key := strings.ToLower(m.Name)
	if prev, dup := seen[key]; dup {
		v.report(diag.CodeDuplicateField, m.Name, m.Pos,
			"rename one of the fields",
			"field %s collides with %s", m.Name, prev)
	} else {
		seen[key] = m.Name
		v.checkWireName(m)
	}
	if !isExported(m.Name) {
		v.report(diag.CodeNamingConvention, m.Name, m.Pos,
			"rename the field to "+naming.CapitalizeFirst(m.Name),
			"field %s must be exported", m.Name)
	}
	if reserved[m.Name] {
		v.report(diag.CodeReservedName, m.Name, m.Pos,
			"rename the field and keep its wire name with a json tag",
			"field name %s is used by a generated method", m.Name)
	}
	for _, mod := range m.Options.Modifiers {
		v.report(diag.CodeImmutableField, m.Name, m.Pos,
			fmt.Sprintf("remove %q from the model tag; built values are already immutable", mod),
			"field %s is declared %s", m.Name, mod)
	}
	for _, opt := range m.Options.Unknown {
		v.report(diag.CodeUnknownOption, m.Name, m.Pos,
			`the model tag accepts "exclude"`,
			"unknown model option %q", opt)
	}
	defaultable := v.checkType(m, m.Type, false)
	if m.Options.Default != nil {
		v.checkDefault(m, defaultable)
	}
}

// checkWireName reports two serialized fields sharing a JSON key. Keys are
// compared exactly, as encoding/json does when it decides which fields
// conflict.
func (v *validator) checkWireName(m decl.Member) {
	if m.Options.Exclude {
		return
	}
	wire := m.Options.WireName
	if wire == "" {
		wire = naming.LowerInitial(m.Name)
	}
	if prev, dup := v.wires[wire]; dup {
		v.report(diag.CodeDuplicateField, m.Name, m.Pos,
			"give one of the fields another json name, or exclude it with json:\"-\"",
			"field %s has the JSON key %q of %s", m.Name, wire, prev)
		return
	}
	v.wires[wire] = m.Name
}

// checkType reports problems with t and returns whether a field of that
// type can carry a default.
func (v *validator) checkType(m decl.Member, t decl.TypeExpr, nested bool) bool {
	switch t.Kind {
	case decl.TypeSlice, decl.TypeArray:
		v.report(diag.CodeRawContainer, m.Name, m.Pos,
			fmt.Sprintf("use %s.%s[%s]", v.runtimeName(), v.rules.SequencePrefix, t.Elem.Text),
			"raw %s type %s", rawKind(t.Kind), t.Text)
		return false
	case decl.TypeMap:
		v.report(diag.CodeRawContainer, m.Name, m.Pos,
			fmt.Sprintf("use %s.%s[%s, %s]", v.runtimeName(), v.rules.MapPrefix, t.Key.Text, t.Elem.Text),
			"raw map type %s", t.Text)
		return false
	case decl.TypePointer:
		v.unsupported(m, t, "drop the pointer; a field without a default is already nullable")
		return false
	case decl.TypeOther:
		v.unsupported(m, t, "")
		return false
	}

	switch v.rules.Container(t, v.alias) {
	case model.KindSequence:
		if nested {
			v.unsupported(m, t, "wrap the inner collection in its own model")
			return false
		}
		if len(t.Args) != 1 {
			v.unsupported(m, t, fmt.Sprintf("%s takes one type argument", t.Name))
			return false
		}
		return v.checkType(m, t.Args[0], true)
	case model.KindMap:
		if nested {
			v.unsupported(m, t, "wrap the inner collection in its own model")
			return false
		}
		if len(t.Args) != 2 {
			v.unsupported(m, t, fmt.Sprintf("%s takes two type arguments", t.Name))
			return false
		}
		if _, ok := model.ScalarByName(t.Args[0].Name); !ok || t.Args[0].Package != "" {
			v.unsupported(m, t.Args[0], "map keys must be string, int, float64 or bool")
			return false
		}
		return v.checkType(m, t.Args[1], true)
	}

	if t.Package == v.alias && v.alias != "" {
		v.unsupported(m, t, fmt.Sprintf("use %s.%s or %s.%s", v.alias, v.rules.SequencePrefix, v.alias, v.rules.MapPrefix))
		return false
	}
	if len(t.Args) > 0 {
		v.unsupported(m, t, "generic types other than the runtime containers are not supported")
		return false
	}
	if t.Package == "" {
		if _, ok := model.ScalarByName(t.Name); ok {
			return true
		}
		if predeclared[t.Name] {
			v.unsupported(m, t, "use string, int, float64 or bool")
			return false
		}
	}
	// model reference, resolved by the analyzer
	return false
}

func (v *validator) unsupported(m decl.Member, t decl.TypeExpr, suggestion string) {
	if suggestion == "" {
		suggestion = "see `modelgen explain unsupported-type`"
	}
	v.report(diag.CodeUnsupportedType, m.Name, m.Pos, suggestion, "unsupported field type %s", t.Text)
}

func (v *validator) checkDefault(m decl.Member, defaultable bool) {
	raw := *m.Options.Default
	if !defaultable {
		v.report(diag.CodeInvalidDefault, m.Name, m.Pos,
			"remove the default tag; only scalar fields and containers of scalars take defaults",
			"field of type %s cannot carry a default", m.Type.Text)
		return
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		v.report(diag.CodeInvalidDefault, m.Name, m.Pos,
			"write the default as a YAML flow literal, e.g. 0, 'text', ['a','b'] or {k: 1}",
			"default %q does not parse: %v", raw, err)
		return
	}
	if len(node.Content) == 0 {
		v.report(diag.CodeInvalidDefault, m.Name, m.Pos,
			"write the default as a YAML flow literal, e.g. 0, 'text', ['a','b'] or {k: 1}",
			"default is empty")
	}
}

func (v *validator) runtimeName() string {
	if v.alias != "" {
		return v.alias
	}
	return naming.PackageAlias(v.rules.RuntimePath)
}

func rawKind(k decl.TypeKind) string {
	if k == decl.TypeArray {
		return "array"
	}
	return "slice"
}

// predeclared lists the predeclared type names that are not scalars.
var predeclared = map[string]bool{
	"any": true, "error": true, "byte": true, "rune": true, "uintptr": true,
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "complex64": true, "complex128": true, "comparable": true,
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
