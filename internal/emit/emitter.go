// Package emit renders analyzed models as Go source. Rendering is plain
// text assembly; every formatting decision sits in a small function of
// literal.go. The assembled text is parsed and printed back so the output is
// canonical and byte-for-byte reproducible.
package emit

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/printer"
	"go/token"
	"modelgen/internal/diag"
	"modelgen/internal/logging"
	"modelgen/internal/model"
	"modelgen/internal/naming"
	"strings"
)

// HeaderPrefix starts the first line of every generated file.
const HeaderPrefix = "// Code generated by modelgen"

// SerializersFile is the per-package serializer registry.
const SerializersFile = "serializers.go"

// SerializersMarker links a generated file to the serializer registry.
const SerializersMarker = "//modelgen:serializers " + SerializersFile

// Options configures rendering.
type Options struct {
	// RuntimePath is the import path of the runtime support library.
	RuntimePath string
}

// DefaultOptions returns the options matching the default configuration.
func DefaultOptions() Options {
	return Options{RuntimePath: naming.DefaultPolicy().RuntimePrefix}
}

// Output is one rendered model.
type Output struct {
	TypeName      string
	FileName      string
	Package       string
	SerializerVar string
	Source        []byte
}

// Emit renders m.
func Emit(m *model.Model, opts Options) (*Output, error) {
	if opts.RuntimePath == "" {
		opts = DefaultOptions()
	}
	e := &emitter{m: m, opts: opts, names: namesFor(m.Name)}
	e.render()
	src, err := Canonicalize(e.buf.Bytes())
	if err != nil {
		logging.Get(logging.CategoryEmit).Error("rendered %s does not parse: %v", m.Name, err)
		return nil, diag.Internal(m.TemplateName, fmt.Errorf("render %s: %w", m.Name, err))
	}
	logging.EmitDebug("rendered %s: %d bytes", m.Name, len(src))
	return &Output{
		TypeName:      m.Name,
		FileName:      naming.GeneratedFileName(m.Name),
		Package:       m.Package,
		SerializerVar: e.names.serializer,
		Source:        src,
	}, nil
}

// Canonicalize parses src and prints it in gofmt layout. Imports keep
// their order.
func Canonicalize(src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, fset, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// names holds the generated identifiers of one model.
type names struct {
	typ        string
	builder    string
	factory    string
	ctor       string
	init       string
	serializer string
	wire       string
}

func namesFor(typ string) names {
	v := naming.LowerInitial(typ)
	return names{
		typ:        typ,
		builder:    typ + "Builder",
		factory:    "New" + typ,
		ctor:       "new" + typ,
		init:       "initialize" + typ + "Builder",
		serializer: v + "Serializer",
		wire:       v + "Wire",
	}
}

// SerializerVar returns the serializer variable name bound to a type.
func SerializerVar(typ string) string {
	return namesFor(typ).serializer
}

type emitter struct {
	m     *model.Model
	opts  Options
	names names
	buf   bytes.Buffer
}

func (e *emitter) p(format string, args ...any) {
	fmt.Fprintf(&e.buf, format, args...)
	e.buf.WriteByte('\n')
}

func (e *emitter) render() {
	e.header()
	e.typeDecl()
	e.builderDecl()
	e.factory()
	e.ctor()
	e.accessors()
	e.builderMethods()
	e.serializer()
	e.jsonMethods()
	if e.m.HasDefaults() {
		e.initializer()
	}
}

func (e *emitter) header() {
	e.p("%s from %s. DO NOT EDIT.", HeaderPrefix, e.m.File)
	e.p("")
	e.p("package %s", e.m.Package)
	e.p("")
	e.p("import (")
	e.p("\t%s", ImportSpec("", "encoding/json"))
	e.p("")
	runtimeAlias := ""
	if naming.PackageAlias(e.opts.RuntimePath) != runtimeName {
		runtimeAlias = runtimeName
	}
	e.p("\t%s", ImportSpec(runtimeAlias, e.opts.RuntimePath))
	var extra []model.Import
	for _, imp := range e.m.Imports {
		local := imp.Alias
		if local == "" {
			local = naming.PackageAlias(imp.Path)
		}
		if (imp.Path == "encoding/json" && local == "json") || (imp.Path == e.opts.RuntimePath && local == runtimeName) {
			continue
		}
		extra = append(extra, imp)
	}
	if len(extra) > 0 {
		e.p("")
		for _, imp := range extra {
			e.p("\t%s", ImportSpec(imp.Alias, imp.Path))
		}
	}
	e.p(")")
	e.p("")
	e.p("%s", SerializersMarker)
	e.p("")
}

func (e *emitter) typeDecl() {
	doc := Comment(e.m.Doc)
	if doc == "" {
		doc = Comment(fmt.Sprintf("%s is the immutable model generated from %s.", e.names.typ, e.m.TemplateName))
	}
	e.buf.WriteString(doc)
	e.p("type %s struct {", e.names.typ)
	for _, f := range e.m.Fields {
		e.p("\t%s\t%s", FieldIdent(f.Name), StorageType(f))
	}
	e.p("}")
	e.p("")
}

func (e *emitter) builderDecl() {
	e.p("// %s stages the fields of a new %s.", e.names.builder, e.names.typ)
	e.p("type %s struct {", e.names.builder)
	for _, f := range e.m.Fields {
		e.buf.WriteString(indent(Comment(f.Doc)))
		e.p("\t%s\t%s", f.Name, BuilderType(f))
	}
	e.p("}")
	e.p("")
}

func (e *emitter) factory() {
	n := e.names
	e.p("// %s returns a new %s built from its defaults with updates applied.", n.factory, n.typ)
	e.p("// updates may be nil.")
	e.p("func %s(updates func(b *%s)) %s {", n.factory, n.builder, n.typ)
	e.p("\tvar b %s", n.builder)
	if e.m.HasDefaults() {
		e.p("\t%s(&b)", n.init)
	}
	e.p("\tif updates != nil {")
	e.p("\t\tupdates(&b)")
	e.p("\t}")
	e.p("\treturn %s(&b)", n.ctor)
	e.p("}")
	e.p("")
}

func (e *emitter) ctor() {
	n := e.names
	e.p("func %s(b *%s) %s {", n.ctor, n.builder, n.typ)
	e.p("\treturn %s{", n.typ)
	for _, f := range e.m.Fields {
		e.p("\t\t%s:\t%s,", FieldIdent(f.Name), fromBuilder(f, "b."+f.Name))
	}
	e.p("\t}")
	e.p("}")
	e.p("")
}

// fromBuilder converts a builder field to its storage form.
func fromBuilder(f model.Field, expr string) string {
	switch {
	case f.Type.IsContainer() && f.Nullable():
		return expr + ".BuildPtr()"
	case f.Type.IsContainer():
		return expr + ".Build()"
	case f.Nullable():
		return runtimeName + ".ClonePtr(" + expr + ")"
	}
	return expr
}

// toBuilder converts a storage field to its builder form.
func toBuilder(f model.Field, expr string) string {
	switch {
	case f.Type.Kind == model.KindSequence && f.Nullable():
		return runtimeName + ".ToListBuilder(" + expr + ")"
	case f.Type.Kind == model.KindMap && f.Nullable():
		return runtimeName + ".ToMapBuilder(" + expr + ")"
	case f.Type.IsContainer():
		return expr + ".ToBuilder()"
	case f.Nullable():
		return runtimeName + ".ClonePtr(" + expr + ")"
	}
	return expr
}

func (e *emitter) accessors() {
	for _, f := range e.m.Fields {
		doc := Comment(f.Doc)
		if doc == "" {
			if f.Nullable() {
				doc = Comment(fmt.Sprintf("%s returns the %s field, or nil when it is not set.", f.Name, f.Name))
			} else {
				doc = Comment(fmt.Sprintf("%s returns the %s field.", f.Name, f.Name))
			}
		}
		e.buf.WriteString(doc)
		e.p("func (x %s) %s() %s {", e.names.typ, f.Name, StorageType(f))
		if f.Nullable() {
			e.p("\treturn %s.ClonePtr(x.%s)", runtimeName, FieldIdent(f.Name))
		} else {
			e.p("\treturn x.%s", FieldIdent(f.Name))
		}
		e.p("}")
		e.p("")
	}
}

func (e *emitter) builderMethods() {
	n := e.names
	e.p("// Build returns the immutable %s staged by b.", n.typ)
	e.p("func (b *%s) Build() %s {", n.builder, n.typ)
	e.p("\treturn %s(b)", n.ctor)
	e.p("}")
	e.p("")

	e.p("// ToBuilder returns a builder seeded with the fields of x.")
	e.p("func (x %s) ToBuilder() %s {", n.typ, n.builder)
	e.p("\treturn %s{", n.builder)
	for _, f := range e.m.Fields {
		e.p("\t\t%s:\t%s,", f.Name, toBuilder(f, "x."+FieldIdent(f.Name)))
	}
	e.p("\t}")
	e.p("}")
	e.p("")

	e.p("// Rebuild returns a copy of x with updates applied.")
	e.p("func (x %s) Rebuild(updates func(b *%s)) %s {", n.typ, n.builder, n.typ)
	e.p("\tb := x.ToBuilder()")
	e.p("\tif updates != nil {")
	e.p("\t\tupdates(&b)")
	e.p("\t}")
	e.p("\treturn %s(&b)", n.ctor)
	e.p("}")
	e.p("")
}

func (e *emitter) serializer() {
	n := e.names
	e.p("var %s = %s.NewJSONSerializer[%s](%q)", n.serializer, runtimeName, n.typ, e.m.BindingName())
	e.p("")
	e.p("// Serializer returns the serializer bound to %s.", n.typ)
	e.p("func (%s) Serializer() %s.Serializer[%s] {", n.typ, runtimeName, n.typ)
	e.p("\treturn %s", n.serializer)
	e.p("}")
	e.p("")
}

func (e *emitter) wireFields() []model.Field {
	var fields []model.Field
	for _, f := range e.m.Fields {
		if !f.ExcludeFromSerialization {
			fields = append(fields, f)
		}
	}
	return fields
}

func (e *emitter) jsonMethods() {
	n := e.names
	wire := e.wireFields()

	e.p("type %s struct {", n.wire)
	for _, f := range wire {
		e.p("\t%s\t%s\t%s", f.Name, StorageType(f), JSONTag(f))
	}
	e.p("}")
	e.p("")

	e.p("// MarshalJSON encodes x using its wire names.")
	e.p("func (x %s) MarshalJSON() ([]byte, error) {", n.typ)
	if len(wire) == 0 {
		e.p("\treturn json.Marshal(%s{})", n.wire)
	} else {
		e.p("\treturn json.Marshal(%s{", n.wire)
		for _, f := range wire {
			e.p("\t\t%s:\t%s,", f.Name, "x."+FieldIdent(f.Name))
		}
		e.p("\t})")
	}
	e.p("}")
	e.p("")

	e.p("// UnmarshalJSON decodes data into x. Keys missing from data keep their")
	e.p("// defaults.")
	e.p("func (x *%s) UnmarshalJSON(data []byte) error {", n.typ)
	e.p("\td := %s(nil)", n.factory)
	if len(wire) == 0 {
		e.p("\tvar w %s", n.wire)
	} else {
		e.p("\tw := %s{", n.wire)
		for _, f := range wire {
			e.p("\t\t%s:\t%s,", f.Name, "d."+FieldIdent(f.Name))
		}
		e.p("\t}")
	}
	e.p("\tif err := json.Unmarshal(data, &w); err != nil {")
	e.p("\t\treturn err")
	e.p("\t}")
	e.p("\tb := d.ToBuilder()")
	for _, f := range wire {
		e.p("\tb.%s = %s", f.Name, toBuilder(f, "w."+f.Name))
	}
	e.p("\t*x = %s(&b)", n.ctor)
	e.p("\treturn nil")
	e.p("}")
	e.p("")
}

func (e *emitter) initializer() {
	n := e.names
	e.p("// %s applies the declared defaults to b in declaration order.", n.init)
	e.p("func %s(b *%s) {", n.init, n.builder)
	for _, f := range e.m.Fields {
		d := f.Default
		if d == nil {
			continue
		}
		switch d.Shape() {
		case model.KindScalar:
			e.p("\tb.%s = %s", f.Name, FormatLiteral(*d.Scalar))
		case model.KindSequence:
			if len(d.Elements) > 0 {
				e.p("\tb.%s.Add(%s)", f.Name, FormatLiterals(d.Elements))
			}
		case model.KindMap:
			for _, entry := range d.Entries {
				e.p("\tb.%s.Put(%s, %s)", f.Name, FormatLiteral(entry.Key), FormatLiteral(entry.Value))
			}
		}
	}
	e.p("}")
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l != "" {
			b.WriteString("\t" + l)
		}
	}
	return b.String()
}
