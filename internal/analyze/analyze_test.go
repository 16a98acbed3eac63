package analyze

import (
	"errors"
	"modelgen/internal/decl"
	"modelgen/internal/diag"
	"modelgen/internal/frontend"
	"modelgen/internal/model"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const module = "example.com/shop"

func read(t *testing.T, files map[string]string) []decl.Declaration {
	t.Helper()
	fs := afero.NewMemMapFs()
	var paths []string
	for path, src := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(src), 0o644))
		paths = append(paths, path)
	}
	parsed, err := frontend.NewReader(fs, frontend.Options{ModuleRoot: "/shop", Module: module}).ReadFiles(paths)
	require.NoError(t, err)
	var decls []decl.Declaration
	for _, f := range parsed {
		decls = append(decls, f.Decls...)
	}
	return decls
}

func find(t *testing.T, decls []decl.Declaration, name string) *decl.Declaration {
	t.Helper()
	for i := range decls {
		if decls[i].Name == name {
			return &decls[i]
		}
	}
	t.Fatalf("declaration %s not found", name)
	return nil
}

const userSrc = `//go:build modelgen

package user

import (
	"time"

	"example.com/shop/internal/money"
	acct "example.com/shop/models/account"
	"modelgen/pkg/modelrt"
)

//modelgen:model
type _User struct {
	Name     string
	Age      int                      ` + "`default:\"0\"`" + `
	Rating   float64                  ` + "`default:\"4\"`" + `
	Verified bool                     ` + "`default:\"true\"`" + `
	Nick     string                   ` + "`default:\"'anon'\" json:\"nickname\"`" + `
	Roles    modelrt.List[string]     ` + "`default:\"['user','default']\"`" + `
	Grades   modelrt.Map[string, int] ` + "`default:\"{math: 90, art: 0x10}\"`" + `
	Home     _Address
	Work     Address
	Account  acct.Account
	Accounts modelrt.List[acct.Account]
	Joined   time.Time
	Secret   string                   ` + "`json:\"-\"`" + `
}

//modelgen:model
type _Address struct {
	Street string
}
`

const accountSrc = `//go:build modelgen

package account

//modelgen:model
type _Account struct {
	ID string
}
`

func TestAnalyze(t *testing.T) {
	decls := read(t, map[string]string{
		"/shop/models/user/user.go":       userSrc,
		"/shop/models/account/account.go": accountSrc,
	})
	symbols := NewSymbols(decls...)

	m, err := Analyze(find(t, decls, "_User"), symbols, DefaultOptions(module))
	require.NoError(t, err)

	assert.Equal(t, "User", m.Name)
	assert.Equal(t, "_User", m.TemplateName)
	assert.Equal(t, "user", m.Package)
	assert.Equal(t, "user.go", m.File)
	assert.Equal(t, "example.com/shop/models/user.model", m.ImportPath)

	want := []model.Import{
		{Path: "time"},
		{Alias: "acct", Path: "example.com/shop/models/account.model"},
	}
	if diff := cmp.Diff(want, m.Imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}

	fields := make(map[string]model.Field)
	var order []string
	for _, f := range m.Fields {
		fields[f.Name] = f
		order = append(order, f.Name)
	}
	assert.Equal(t, []string{"Name", "Age", "Rating", "Verified", "Nick", "Roles", "Grades", "Home", "Work", "Account", "Accounts", "Joined", "Secret"}, order)

	assert.Nil(t, fields["Name"].Default)
	assert.Equal(t, "name", fields["Name"].WireName)
	assert.Equal(t, model.Literal{Type: model.ScalarInt, Value: "0"}, *fields["Age"].Default.Scalar)
	assert.Equal(t, model.Literal{Type: model.ScalarFloat, Value: "4"}, *fields["Rating"].Default.Scalar)
	assert.Equal(t, "true", fields["Verified"].Default.Scalar.Value)
	assert.Equal(t, "anon", fields["Nick"].Default.Scalar.Value)
	assert.Equal(t, "nickname", fields["Nick"].WireName)

	assert.Equal(t, model.Sequence(model.Scalar(model.ScalarString)), fields["Roles"].Type)
	assert.Equal(t, []model.Literal{
		{Type: model.ScalarString, Value: "user"},
		{Type: model.ScalarString, Value: "default"},
	}, fields["Roles"].Default.Elements)

	assert.Equal(t, []model.Entry{
		{Key: model.Literal{Type: model.ScalarString, Value: "math"}, Value: model.Literal{Type: model.ScalarInt, Value: "90"}},
		{Key: model.Literal{Type: model.ScalarString, Value: "art"}, Value: model.Literal{Type: model.ScalarInt, Value: "16"}},
	}, fields["Grades"].Default.Entries)

	assert.Equal(t, model.Reference(model.Ref{Name: "Address"}), fields["Home"].Type)
	assert.Equal(t, model.Reference(model.Ref{Name: "Address"}), fields["Work"].Type)
	assert.Equal(t, model.Reference(model.Ref{Package: "acct", Name: "Account", ImportPath: "example.com/shop/models/account.model"}), fields["Account"].Type)
	assert.Equal(t, model.KindReference, fields["Accounts"].Type.Elem.Kind)
	assert.Equal(t, "time", fields["Joined"].Type.Ref.ImportPath)
	assert.True(t, fields["Secret"].ExcludeFromSerialization)
}

func field(body string) string {
	return "//go:build modelgen\n\npackage x\n\nimport \"modelgen/pkg/modelrt\"\n\nvar _ modelrt.List[int]\n\n//modelgen:model\ntype _X struct {\n\t" + body + "\n}\n"
}

func analyzeOne(t *testing.T, src string) (*model.Model, error) {
	t.Helper()
	decls := read(t, map[string]string{"/shop/models/x/x.go": src})
	return Analyze(&decls[0], NewSymbols(decls...), DefaultOptions(module))
}

func TestShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"sequence for scalar", "A int `default:\"[1, 2]\"`"},
		{"map for scalar", "A string `default:\"{a: b}\"`"},
		{"scalar for sequence", "A modelrt.List[string] `default:\"'user'\"`"},
		{"map for sequence", "A modelrt.List[int] `default:\"{a: 1}\"`"},
		{"sequence for map", "A modelrt.Map[string, int] `default:\"[1]\"`"},
		{"nested sequence element", "A modelrt.List[int] `default:\"[[1]]\"`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := analyzeOne(t, field(tt.body))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, diag.ErrShapeMismatch))
			assert.False(t, errors.Is(err, diag.ErrValidation))
		})
	}
}

func TestInvalidLiteralIsValidationError(t *testing.T) {
	tests := []string{
		"A int `default:\"'zero'\"`",
		"A int `default:\"1.5\"`",
		"A bool `default:\"1\"`",
		"A string `default:\"5\"`",
		"A float64 `default:\".inf\"`",
		"A modelrt.List[int] `default:\"[1, 'two']\"`",
		"A modelrt.Map[string, int] `default:\"{a: 1, a: 2}\"`",
		"A int `default:\"~\"`",
	}
	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			_, err := analyzeOne(t, field(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, diag.ErrValidation))
			var e *diag.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, diag.CodeInvalidDefault, e.Code)
		})
	}
}

func TestUnresolvedReferences(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		member string
	}{
		{"unknown local", "Home _Nowhere", "Home"},
		{"unknown unsigiled local", "Home Nowhere", "Home"},
		{"missing import", "When time.Time", "When"},
		{"inside list", "Homes modelrt.List[_Nowhere]", "Homes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzeOne(t, field(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, diag.ErrUnresolvedImport))
			var e *diag.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.member, e.Member)
		})
	}
}

func TestUnresolvedTemplateInKnownPackage(t *testing.T) {
	decls := read(t, map[string]string{
		"/shop/models/user/user.go": `//go:build modelgen

package user

import "example.com/shop/models/account"

//modelgen:model
type _User struct {
	Account account.Missing
}
`,
		"/shop/models/account/account.go": accountSrc,
	})
	_, err := Analyze(find(t, decls, "_User"), NewSymbols(decls...), DefaultOptions(module))
	assert.True(t, errors.Is(err, diag.ErrUnresolvedImport))
	assert.ErrorContains(t, err, "account.Missing")
}

func TestImportsKeepSourceOrderAndDropUnused(t *testing.T) {
	decls := read(t, map[string]string{"/shop/models/x/x.go": `//go:build modelgen

package x

import (
	"net/url"
	"time"
	"strings"

	"modelgen/pkg/modelrt"
)

var _ = strings.ToUpper

//modelgen:model
type _X struct {
	When  time.Time
	Links modelrt.List[url.URL]
	Again time.Time
}
`})
	m, err := Analyze(&decls[0], NewSymbols(decls...), DefaultOptions(module))
	require.NoError(t, err)
	assert.Equal(t, []model.Import{{Path: "net/url"}, {Path: "time"}}, m.Imports)
}

func TestSymbols(t *testing.T) {
	s := NewSymbols(decl.Declaration{Name: "_A", Dir: "/m/a"}, decl.Declaration{Name: "_B", ImportPath: "x.com/b", Dir: "/m/b"})
	assert.True(t, s.Has("/m/a", "_A"))
	assert.True(t, s.Has("x.com/b", "_B"))
	assert.False(t, s.Has("/m/b", "_B"))
	assert.True(t, s.Known("x.com/b"))
	var nilSymbols *Symbols
	assert.False(t, nilSymbols.Has("a", "b"))
}
