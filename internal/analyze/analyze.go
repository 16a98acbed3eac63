// Package analyze turns a validated declaration into field descriptors and
// the import list of its generated file.
package analyze

import (
	"fmt"
	"math"
	"modelgen/internal/decl"
	"modelgen/internal/diag"
	"modelgen/internal/logging"
	"modelgen/internal/model"
	"modelgen/internal/naming"
	"modelgen/internal/validate"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options configures analysis.
type Options struct {
	Rules  validate.Rules
	Policy naming.ImportPolicy
	Module string // consuming module path
}

// DefaultOptions returns options for module.
func DefaultOptions(module string) Options {
	return Options{Rules: validate.DefaultRules(), Policy: naming.DefaultPolicy(), Module: module}
}

// Symbols records the templates discovered in a pass, per package. It is
// filled before analysis starts and only read afterwards.
type Symbols struct {
	packages map[string]map[string]bool
}

// NewSymbols indexes decls.
func NewSymbols(decls ...decl.Declaration) *Symbols {
	s := &Symbols{packages: make(map[string]map[string]bool)}
	for _, d := range decls {
		s.Add(d)
	}
	return s
}

// Add records d.
func (s *Symbols) Add(d decl.Declaration) {
	key := packageKey(d.ImportPath, d.Dir)
	if s.packages[key] == nil {
		s.packages[key] = make(map[string]bool)
	}
	s.packages[key][d.Name] = true
}

// Has reports whether the package identified by key declares name.
func (s *Symbols) Has(key, name string) bool {
	if s == nil {
		return false
	}
	return s.packages[key][name]
}

// Known reports whether any template of the package identified by key has
// been recorded.
func (s *Symbols) Known(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.packages[key]
	return ok
}

func packageKey(importPath, dir string) string {
	if importPath != "" {
		return importPath
	}
	return dir
}

// Analyze resolves the fields and imports of d. d must have passed
// validation.
func Analyze(d *decl.Declaration, symbols *Symbols, opts Options) (*model.Model, error) {
	a := &analyzer{
		d:       d,
		symbols: symbols,
		opts:    opts,
		alias:   opts.Rules.RuntimeAlias(d.Imports),
		used:    make(map[string]bool),
	}
	m := &model.Model{
		Name:         naming.StripSigil(d.Name, opts.Rules.Sigil),
		TemplateName: d.Name,
		Package:      d.Package,
		File:         d.File,
		Doc:          d.Doc,
	}
	if d.ImportPath != "" {
		m.ImportPath = opts.Policy.GeneratedDir(d.ImportPath)
	}
	var errs diag.List
	for _, member := range d.Fields() {
		f, err := a.field(member)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.Fields = append(m.Fields, f)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	m.Imports = a.imports()
	logging.AnalyzeDebug("%s: %d fields, %d imports", d.Name, len(m.Fields), len(m.Imports))
	return m, nil
}

type analyzer struct {
	d       *decl.Declaration
	symbols *Symbols
	opts    Options
	alias   string
	used    map[string]bool // local package names referenced by field types
}

func (a *analyzer) field(m decl.Member) (model.Field, *diag.Error) {
	t, err := a.classify(m, m.Type)
	if err != nil {
		return model.Field{}, err
	}
	f := model.Field{
		Name:                     m.Name,
		WireName:                 m.Options.WireName,
		Type:                     t,
		ExcludeFromSerialization: m.Options.Exclude,
		Doc:                      m.Doc,
		Pos:                      m.Pos,
	}
	if f.WireName == "" {
		f.WireName = naming.LowerInitial(m.Name)
	}
	if m.Options.Default != nil {
		def, err := a.parseDefault(m, *m.Options.Default, t)
		if err != nil {
			return model.Field{}, err
		}
		f.Default = def
		if err := f.CheckShape(); err != nil {
			return model.Field{}, diag.ShapeMismatch(a.d.Name, m.Name, m.Pos, "%v", err)
		}
	}
	return f, nil
}

func (a *analyzer) classify(m decl.Member, t decl.TypeExpr) (model.Type, *diag.Error) {
	switch a.opts.Rules.Container(t, a.alias) {
	case model.KindSequence:
		elem, err := a.classify(m, t.Args[0])
		if err != nil {
			return model.Type{}, err
		}
		return model.Sequence(elem), nil
	case model.KindMap:
		key, err := a.classify(m, t.Args[0])
		if err != nil {
			return model.Type{}, err
		}
		value, err := a.classify(m, t.Args[1])
		if err != nil {
			return model.Type{}, err
		}
		return model.Map(key, value), nil
	}
	if t.Package == "" {
		if s, ok := model.ScalarByName(t.Name); ok {
			return model.Scalar(s), nil
		}
		return a.local(m, t)
	}
	return a.qualified(m, t)
}

// local resolves a same-package reference, written with or without the
// sigil.
func (a *analyzer) local(m decl.Member, t decl.TypeExpr) (model.Type, *diag.Error) {
	sigil := a.opts.Rules.Sigil
	key := packageKey(a.d.ImportPath, a.d.Dir)
	template := t.Name
	if !strings.HasPrefix(template, sigil) {
		template = sigil + t.Name
	}
	if !a.symbols.Has(key, template) {
		return model.Type{}, diag.UnresolvedImport(a.d.Name, m.Name, t.Name, m.Pos,
			fmt.Sprintf("declare template %s in package %s or qualify the type with its package", template, a.d.Package))
	}
	return model.Reference(model.Ref{Name: naming.StripSigil(template, sigil)}), nil
}

func (a *analyzer) qualified(m decl.Member, t decl.TypeExpr) (model.Type, *diag.Error) {
	var imp *decl.Import
	for i := range a.d.Imports {
		if a.d.Imports[i].LocalName() == t.Package {
			imp = &a.d.Imports[i]
			break
		}
	}
	if imp == nil {
		return model.Type{}, diag.UnresolvedImport(a.d.Name, m.Name, t.Text, m.Pos,
			fmt.Sprintf("add an import for package %s", t.Package))
	}
	rewritten, ok := a.opts.Policy.RewriteImportPath(imp.Path, a.opts.Module)
	if !ok {
		return model.Type{}, diag.UnresolvedImport(a.d.Name, m.Name, t.Text, m.Pos,
			"runtime support types other than the containers cannot be field types")
	}
	if key := a.opts.Policy.Qualify(imp.Path, a.opts.Module); rewritten != key && a.symbols.Known(key) {
		if !a.symbols.Has(key, a.opts.Rules.Sigil+t.Name) {
			return model.Type{}, diag.UnresolvedImport(a.d.Name, m.Name, t.Text, m.Pos,
				fmt.Sprintf("package %s declares no template %s%s", imp.Path, a.opts.Rules.Sigil, t.Name))
		}
	}
	a.used[t.Package] = true
	return model.Reference(model.Ref{Package: a.importName(*imp), Name: t.Name, ImportPath: rewritten}), nil
}

// generatedImports maps the package names every generated file imports to
// the path each stands for there. The runtime always renders as modelrt,
// whatever its configured path.
var generatedImports = map[string]string{
	"json":    "encoding/json",
	"modelrt": "",
}

// importName returns the name the generated file refers to imp by. An
// import whose name the generated file already uses for one of its own
// imports is renamed to a name no import of the template uses.
func (a *analyzer) importName(imp decl.Import) string {
	local := imp.LocalName()
	path, taken := generatedImports[local]
	if !taken || path == imp.Path {
		return local
	}
	name := local + "pkg"
	for i := 2; a.nameInUse(name); i++ {
		name = fmt.Sprintf("%spkg%d", local, i)
	}
	logging.AnalyzeDebug("%s: import %s renamed to %s", a.d.Name, imp.Path, name)
	return name
}

func (a *analyzer) nameInUse(name string) bool {
	if _, taken := generatedImports[name]; taken {
		return true
	}
	for _, imp := range a.d.Imports {
		if imp.LocalName() == name {
			return true
		}
	}
	return false
}

// imports returns the rewritten imports referenced by field types, in
// source order, without duplicates.
func (a *analyzer) imports() []model.Import {
	var out []model.Import
	seen := make(map[string]bool)
	for _, imp := range a.d.Imports {
		local := imp.LocalName()
		if !a.used[local] {
			continue
		}
		path, ok := a.opts.Policy.RewriteImportPath(imp.Path, a.opts.Module)
		if !ok || seen[local+" "+path] {
			continue
		}
		seen[local+" "+path] = true
		mi := model.Import{Path: path}
		if name := a.importName(imp); name != naming.PackageAlias(path) {
			mi.Alias = name
		}
		out = append(out, mi)
	}
	return out
}

func (a *analyzer) parseDefault(m decl.Member, raw string, t model.Type) (*model.Default, *diag.Error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil || len(doc.Content) == 0 {
		return nil, a.invalid(m, "default %q does not parse", raw)
	}
	node := doc.Content[0]
	switch t.Kind {
	case model.KindScalar:
		if node.Kind != yaml.ScalarNode {
			return nil, a.mismatch(m, node, t)
		}
		l, err := a.literal(m, node, t.Scalar)
		if err != nil {
			return nil, err
		}
		return model.ScalarDefault(l), nil
	case model.KindSequence:
		if node.Kind != yaml.SequenceNode {
			return nil, a.mismatch(m, node, t)
		}
		elems := make([]model.Literal, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, a.mismatch(m, item, *t.Elem)
			}
			l, err := a.literal(m, item, t.Elem.Scalar)
			if err != nil {
				return nil, err
			}
			elems = append(elems, l)
		}
		return model.SequenceDefault(elems...), nil
	case model.KindMap:
		if node.Kind != yaml.MappingNode {
			return nil, a.mismatch(m, node, t)
		}
		entries := make([]model.Entry, 0, len(node.Content)/2)
		seen := make(map[string]bool)
		for i := 0; i+1 < len(node.Content); i += 2 {
			kn, vn := node.Content[i], node.Content[i+1]
			if kn.Kind != yaml.ScalarNode {
				return nil, a.mismatch(m, kn, *t.Key)
			}
			if vn.Kind != yaml.ScalarNode {
				return nil, a.mismatch(m, vn, *t.Value)
			}
			k, err := a.literal(m, kn, t.Key.Scalar)
			if err != nil {
				return nil, err
			}
			v, err := a.literal(m, vn, t.Value.Scalar)
			if err != nil {
				return nil, err
			}
			if seen[k.Value] {
				return nil, a.invalid(m, "default repeats key %s", kn.Value)
			}
			seen[k.Value] = true
			entries = append(entries, model.Entry{Key: k, Value: v})
		}
		return model.MapDefault(entries...), nil
	}
	return nil, a.mismatch(m, node, t)
}

// literal decodes one scalar node for the wanted type. Numbers and bools
// are stored as canonical Go tokens.
func (a *analyzer) literal(m decl.Member, n *yaml.Node, want model.ScalarType) (model.Literal, *diag.Error) {
	tag := n.ShortTag()
	switch want {
	case model.ScalarString:
		if tag == "!!str" {
			return model.Literal{Type: want, Value: n.Value}, nil
		}
	case model.ScalarInt:
		if tag == "!!int" {
			v, err := strconv.ParseInt(n.Value, 0, 64)
			if err == nil {
				return model.Literal{Type: want, Value: strconv.FormatInt(v, 10)}, nil
			}
		}
	case model.ScalarFloat:
		if tag == "!!float" || tag == "!!int" {
			v, err := strconv.ParseFloat(n.Value, 64)
			if err != nil && tag == "!!int" {
				var i int64
				i, err = strconv.ParseInt(n.Value, 0, 64)
				v = float64(i)
			}
			if err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
				return model.Literal{Type: want, Value: strconv.FormatFloat(v, 'g', -1, 64)}, nil
			}
		}
	case model.ScalarBool:
		if tag == "!!bool" {
			v, err := strconv.ParseBool(n.Value)
			if err == nil {
				return model.Literal{Type: want, Value: strconv.FormatBool(v)}, nil
			}
		}
	}
	return model.Literal{}, a.invalid(m, "literal %s is not a valid %s", n.Value, want)
}

func (a *analyzer) invalid(m decl.Member, format string, args ...any) *diag.Error {
	return diag.Validation(diag.CodeInvalidDefault, a.d.Name, m.Name, m.Pos,
		"see `modelgen explain invalid-default` for the literal forms", format, args...)
}

func (a *analyzer) mismatch(m decl.Member, n *yaml.Node, t model.Type) *diag.Error {
	return diag.ShapeMismatch(a.d.Name, m.Name, m.Pos, "%s literal %q for %s field", nodeShape(n), n.Value, t.Kind)
}

func nodeShape(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "map"
	case yaml.AliasNode:
		return "alias"
	}
	return "scalar"
}
