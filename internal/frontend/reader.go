// Package frontend reads model templates from Go source files and turns
// them into decl trees.
package frontend

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/parser"
	"go/printer"
	"go/token"
	"modelgen/internal/decl"
	"modelgen/internal/logging"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// Directive marks a type declaration as a model template.
const Directive = "//modelgen:model"

// BuildTag is the build constraint that keeps templates out of ordinary
// builds.
const BuildTag = "modelgen"

// Options configures a Reader.
type Options struct {
	// Directive overrides Directive.
	Directive string
	// BuildTag overrides BuildTag.
	BuildTag string
	// ModuleRoot is the directory holding go.mod and Module its module
	// path. Both are needed to fill in import paths of template packages.
	ModuleRoot string
	Module     string
}

// Reader parses template files.
type Reader struct {
	fs   afero.Fs
	opts Options
}

// NewReader returns a reader over fsys.
func NewReader(fsys afero.Fs, opts Options) *Reader {
	if opts.Directive == "" {
		opts.Directive = Directive
	}
	if opts.BuildTag == "" {
		opts.BuildTag = BuildTag
	}
	return &Reader{fs: fsys, opts: opts}
}

// ReadFile parses one template file. Methods are attached only when they
// are declared in the same file; use ReadFiles to attach methods declared
// anywhere in a package.
func (r *Reader) ReadFile(path string) (decl.File, error) {
	files, err := r.ReadFiles([]string{path})
	if err != nil {
		return decl.File{}, err
	}
	return files[0], nil
}

// ReadFiles parses the given template files. Methods declared on a template
// type are attached to it when they appear in any of the given files or in
// a sibling file of the same directory carrying the template build tag.
func (r *Reader) ReadFiles(paths []string) ([]decl.File, error) {
	fset := token.NewFileSet()
	parsed := make([]*ast.File, len(paths))
	given := make(map[string]bool, len(paths))
	for i, path := range paths {
		f, err := r.parse(fset, path, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		parsed[i] = f
		given[path] = true
	}

	// methods by package directory, then receiver type name
	methods := make(map[string]map[string][]method)
	collect := func(path string, f *ast.File) {
		dir := filepath.Dir(path)
		if methods[dir] == nil {
			methods[dir] = make(map[string][]method)
		}
		for _, d := range f.Decls {
			fn, ok := d.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
				continue
			}
			recv := receiverName(fn.Recv.List[0].Type)
			methods[dir][recv] = append(methods[dir][recv], method{
				Member: decl.Member{
					Kind: classifyMethod(fn),
					Name: fn.Name.Name,
					Doc:  fn.Doc.Text(),
					Pos:  position(fset, fn.Pos()),
					Type: decl.TypeExpr{Kind: decl.TypeOther, Text: render(fset, fn.Type)},
				},
				getterShape: fn.Type.Params.NumFields() == 0 && fn.Type.Results.NumFields() == 1,
			})
		}
	}
	for i, f := range parsed {
		collect(paths[i], f)
	}
	siblings, err := r.siblings(fset, paths, given)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		collect(sib.path, sib.file)
	}

	files := make([]decl.File, len(paths))
	for i, f := range parsed {
		files[i] = r.buildFile(fset, paths[i], f, methods[filepath.Dir(paths[i])])
	}
	return files, nil
}

func (r *Reader) parse(fset *token.FileSet, path string, mode parser.Mode) (*ast.File, error) {
	content, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	f, err := parser.ParseFile(fset, path, content, mode)
	if err != nil {
		logging.Get(logging.CategoryFrontend).Error("parse failed: %s - %v", path, err)
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return f, nil
}

// siblings parses the tagged Go files that share a directory with paths but
// are not among them. Files without the build tag are ordinary package code
// and cannot declare methods on a template type.
func (r *Reader) siblings(fset *token.FileSet, paths []string, given map[string]bool) ([]sibling, error) {
	var out []sibling
	dirs := make(map[string]bool)
	for _, path := range paths {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		entries, err := afero.ReadDir(r.fs, dir)
		if err != nil {
			return nil, fmt.Errorf("list template package %s: %w", dir, err)
		}
		for _, e := range entries {
			name := e.Name()
			path := filepath.Join(dir, name)
			if e.IsDir() || given[path] || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				continue
			}
			head, err := r.parse(token.NewFileSet(), path, parser.PackageClauseOnly|parser.ParseComments)
			if err != nil || !r.tagged(head) {
				continue
			}
			f, err := r.parse(fset, path, parser.ParseComments)
			if err != nil {
				return nil, err
			}
			logging.FrontendDebug("scanning %s for template methods", name)
			out = append(out, sibling{path: path, file: f})
		}
	}
	return out, nil
}

type sibling struct {
	path string
	file *ast.File
}

// method is a method declaration found on some receiver type.
type method struct {
	decl.Member
	getterShape bool
}

func (r *Reader) buildFile(fset *token.FileSet, path string, f *ast.File, methods map[string][]method) decl.File {
	out := decl.File{
		Path:       path,
		Package:    f.Name.Name,
		ImportPath: r.importPath(filepath.Dir(path)),
		Tagged:     r.tagged(f),
	}
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		imp := decl.Import{Path: p, Pos: position(fset, spec.Pos())}
		if spec.Name != nil {
			imp.Name = spec.Name.Name
		}
		out.Imports = append(out.Imports, imp)
	}

	for _, d := range f.Decls {
		gen, ok := d.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, s := range gen.Specs {
			ts := s.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gen.Specs) == 1 {
				doc = gen.Doc
			}
			if !hasDirective(doc, r.opts.Directive) {
				continue
			}
			out.Decls = append(out.Decls, r.buildDecl(fset, path, ts, doc, methods[ts.Name.Name], out))
		}
	}
	if len(out.Decls) > 0 && !out.Tagged {
		logging.Get(logging.CategoryFrontend).Warn("%s has no //go:build %s constraint; its templates compile into ordinary builds", path, r.opts.BuildTag)
	}
	logging.FrontendDebug("read %s: package=%s, %d templates, %d imports", filepath.Base(path), out.Package, len(out.Decls), len(out.Imports))
	return out
}

func (r *Reader) buildDecl(fset *token.FileSet, path string, ts *ast.TypeSpec, doc *ast.CommentGroup, methods []method, file decl.File) decl.Declaration {
	d := decl.Declaration{
		Name:       ts.Name.Name,
		Package:    file.Package,
		ImportPath: file.ImportPath,
		Dir:        filepath.Dir(path),
		File:       filepath.Base(path),
		Imports:    file.Imports,
		Doc:        strings.TrimSpace(doc.Text()),
		Pos:        position(fset, ts.Pos()),
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		d.Shape = decl.ShapeOther
		return d
	}
	for _, field := range st.Fields.List {
		tag := ""
		if field.Tag != nil {
			tag, _ = strconv.Unquote(field.Tag.Value)
		}
		typ := typeExpr(fset, field.Type)
		if len(field.Names) == 0 {
			d.Members = append(d.Members, decl.Member{
				Kind: decl.MemberEmbedded,
				Name: embeddedName(typ),
				Type: typ,
				Tag:  tag,
				Doc:  field.Doc.Text(),
				Pos:  position(fset, field.Pos()),
			})
			continue
		}
		opts := parseOptions(tag)
		for _, name := range field.Names {
			d.Members = append(d.Members, decl.Member{
				Kind:    decl.MemberField,
				Name:    name.Name,
				Type:    typ,
				Options: opts,
				Tag:     tag,
				Doc:     field.Doc.Text(),
				Pos:     position(fset, name.Pos()),
			})
		}
	}
	fieldNames := make(map[string]bool)
	for _, m := range d.Members {
		fieldNames[strings.ToLower(m.Name)] = true
	}
	for _, m := range methods {
		if m.Kind == decl.MemberMethod && m.getterShape && fieldNames[strings.ToLower(m.Name)] {
			m.Kind = decl.MemberGetter
		}
		d.Members = append(d.Members, m.Member)
	}
	return d
}

func (r *Reader) importPath(dir string) string {
	if r.opts.Module == "" || r.opts.ModuleRoot == "" {
		return ""
	}
	rel, err := filepath.Rel(r.opts.ModuleRoot, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	if rel == "." {
		return r.opts.Module
	}
	return r.opts.Module + "/" + filepath.ToSlash(rel)
}

// tagged reports whether the file's build constraint excludes it from
// builds that do not set the template tag.
func (r *Reader) tagged(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() > f.Package {
			break
		}
		for _, c := range cg.List {
			if !constraint.IsGoBuild(c.Text) {
				continue
			}
			expr, err := constraint.Parse(c.Text)
			if err != nil {
				return false
			}
			with := expr.Eval(func(tag string) bool { return tag == r.opts.BuildTag })
			without := expr.Eval(func(string) bool { return false })
			return with && !without
		}
	}
	return false
}

// hasDirective scans the raw comment list; CommentGroup.Text drops
// directive lines.
func hasDirective(doc *ast.CommentGroup, directive string) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if c.Text == directive || strings.HasPrefix(c.Text, directive+" ") {
			return true
		}
	}
	return false
}

func parseOptions(tag string) decl.FieldOptions {
	var opts decl.FieldOptions
	st := reflect.StructTag(tag)
	if v, ok := st.Lookup("default"); ok {
		opts.Default = &v
	}
	if v, ok := st.Lookup("json"); ok {
		name, _, _ := strings.Cut(v, ",")
		if v == "-" {
			opts.Exclude = true
		} else {
			opts.WireName = name
		}
	}
	if v, ok := st.Lookup("model"); ok {
		for _, opt := range strings.Split(v, ",") {
			switch opt = strings.TrimSpace(opt); opt {
			case "":
			case "exclude":
				opts.Exclude = true
			case "static", "const", "final":
				opts.Modifiers = append(opts.Modifiers, opt)
			default:
				opts.Unknown = append(opts.Unknown, opt)
			}
		}
	}
	return opts
}

func typeExpr(fset *token.FileSet, e ast.Expr) decl.TypeExpr {
	t := decl.TypeExpr{Text: render(fset, e)}
	switch x := e.(type) {
	case *ast.Ident:
		t.Kind = decl.TypeNamed
		t.Name = x.Name
	case *ast.SelectorExpr:
		pkg, ok := x.X.(*ast.Ident)
		if !ok {
			t.Kind = decl.TypeOther
			return t
		}
		t.Kind = decl.TypeNamed
		t.Package = pkg.Name
		t.Name = x.Sel.Name
	case *ast.IndexExpr:
		t = typeExpr(fset, x.X)
		t.Text = render(fset, e)
		t.Args = []decl.TypeExpr{typeExpr(fset, x.Index)}
	case *ast.IndexListExpr:
		t = typeExpr(fset, x.X)
		t.Text = render(fset, e)
		for _, idx := range x.Indices {
			t.Args = append(t.Args, typeExpr(fset, idx))
		}
	case *ast.ArrayType:
		t.Kind = decl.TypeSlice
		if x.Len != nil {
			t.Kind = decl.TypeArray
		}
		elem := typeExpr(fset, x.Elt)
		t.Elem = &elem
	case *ast.MapType:
		t.Kind = decl.TypeMap
		key, val := typeExpr(fset, x.Key), typeExpr(fset, x.Value)
		t.Key, t.Elem = &key, &val
	case *ast.StarExpr:
		t.Kind = decl.TypePointer
		elem := typeExpr(fset, x.X)
		t.Elem = &elem
	case *ast.ParenExpr:
		t = typeExpr(fset, x.X)
	default:
		t.Kind = decl.TypeOther
	}
	return t
}

func embeddedName(t decl.TypeExpr) string {
	if t.Kind == decl.TypePointer && t.Elem != nil {
		return embeddedName(*t.Elem)
	}
	if t.Name != "" {
		return t.Name
	}
	return t.Text
}

func receiverName(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.StarExpr:
		return receiverName(x.X)
	case *ast.IndexExpr:
		return receiverName(x.X)
	case *ast.IndexListExpr:
		return receiverName(x.X)
	case *ast.ParenExpr:
		return receiverName(x.X)
	case *ast.Ident:
		return x.Name
	}
	return ""
}

// classifyMethod recognises setters by shape; getters need the field list
// and are picked out later.
func classifyMethod(fn *ast.FuncDecl) decl.MemberKind {
	name := fn.Name.Name
	params := fn.Type.Params.NumFields()
	results := fn.Type.Results.NumFields()
	if rest, ok := strings.CutPrefix(name, "Set"); ok && startsUpper(rest) && params == 1 && results == 0 {
		return decl.MemberSetter
	}
	if rest, ok := strings.CutPrefix(name, "Get"); ok && startsUpper(rest) && params == 0 && results == 1 {
		return decl.MemberGetter
	}
	return decl.MemberMethod
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func render(fset *token.FileSet, node ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, node); err != nil {
		return fmt.Sprintf("%T", node)
	}
	return buf.String()
}

func position(fset *token.FileSet, pos token.Pos) decl.Pos {
	p := fset.Position(pos)
	return decl.Pos{File: p.Filename, Line: p.Line, Column: p.Column}
}
