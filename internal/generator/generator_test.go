package generator

import (
	"errors"
	"go/parser"
	"go/token"
	"modelgen/internal/decl"
	"modelgen/internal/diag"
	"modelgen/internal/frontend"
	"modelgen/internal/naming"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const module = "example.com/shop"

func newReader(fs afero.Fs) *frontend.Reader {
	return frontend.NewReader(fs, frontend.Options{ModuleRoot: "/shop", Module: module})
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) []string {
	t.Helper()
	var paths []string
	for path, src := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(src), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func readDecl(t *testing.T, src string) *decl.Declaration {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/shop/models/counter/counter.go": src})
	f, err := newReader(fs).ReadFile("/shop/models/counter/counter.go")
	require.NoError(t, err)
	require.Len(t, f.Decls, 1)
	return &f.Decls[0]
}

func TestGenerateScalarDefault(t *testing.T) {
	d := readDecl(t, `//go:build modelgen

package counter

//modelgen:model
type _Counter struct {
	Count int `+"`default:\"0\"`"+`
}
`)
	out, err := Generate(d, nil, DefaultOptions(module))
	require.NoError(t, err)
	assert.Equal(t, "Counter", out.TypeName)
	assert.Equal(t, "counter.go", out.FileName)
	src := string(out.Source)
	assert.Contains(t, src, "\tb.Count = 0\n")
	assert.Contains(t, src, "func (x Counter) Count() int {")
}

func TestGenerateSequenceDefault(t *testing.T) {
	d := readDecl(t, `//go:build modelgen

package counter

import "modelgen/pkg/modelrt"

//modelgen:model
type _Tagged struct {
	Tags modelrt.List[string] `+"`default:\"['user','default']\"`"+`
}
`)
	out, err := Generate(d, nil, DefaultOptions(module))
	require.NoError(t, err)
	assert.Contains(t, string(out.Source), "\tb.Tags.Add(\"user\", \"default\")\n")
}

func TestGenerateNoDefault(t *testing.T) {
	d := readDecl(t, `//go:build modelgen

package counter

//modelgen:model
type _Note struct {
	Text string
}
`)
	out, err := Generate(d, nil, DefaultOptions(module))
	require.NoError(t, err)
	src := string(out.Source)
	assert.Contains(t, src, "func (x Note) Text() *string {")
	assert.NotContains(t, src, "initializeNoteBuilder")
}

func TestGenerateMissingSigil(t *testing.T) {
	d := readDecl(t, `//go:build modelgen

package counter

//modelgen:model
type Counter struct {
	Count int
}
`)
	out, err := Generate(d, nil, DefaultOptions(module))
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrValidation))
	var list diag.List
	require.True(t, errors.As(err, &list))
	assert.Equal(t, diag.CodeNamingConvention, list[0].Code)
}

func TestGenerateStopsAtValidation(t *testing.T) {
	// an invalid type must be reported before analysis looks up references
	d := readDecl(t, `//go:build modelgen

package counter

//modelgen:model
type _Bag struct {
	Items []string
	Owner _Missing
}
`)
	_, err := Generate(d, nil, DefaultOptions(module))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrValidation))
	assert.False(t, errors.Is(err, diag.ErrUnresolvedImport))
}

// importNames maps every package name a generated file declares to its
// import path, failing on a name declared twice.
func importNames(t *testing.T, src []byte) map[string]string {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.ImportsOnly)
	require.NoError(t, err)
	names := make(map[string]string)
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		require.NoError(t, err)
		name := naming.PackageAlias(path)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		prev, dup := names[name]
		require.False(t, dup && prev != path, "package name %s declared for %s and %s", name, prev, path)
		names[name] = path
	}
	return names
}

func TestGenerateRenamesImportsShadowingGeneratedOnes(t *testing.T) {
	d := readDecl(t, `//go:build modelgen

package counter

import (
	"example.com/shop/internal/json"
	modelrt "example.com/shop/internal/runtime"
	jsonpkg "example.com/shop/internal/codec"
)

//modelgen:model
type _Payload struct {
	Raw   json.Blob
	State modelrt.State
	Codec jsonpkg.Codec
}
`)
	out, err := Generate(d, nil, DefaultOptions(module))
	require.NoError(t, err)

	names := importNames(t, out.Source)
	assert.Equal(t, "encoding/json", names["json"])
	assert.Equal(t, "modelgen/pkg/modelrt", names["modelrt"])
	assert.Equal(t, "example.com/shop/internal/json", names["jsonpkg2"])
	assert.Equal(t, "example.com/shop/internal/runtime", names["modelrtpkg"])
	assert.Equal(t, "example.com/shop/internal/codec", names["jsonpkg"])

	src := string(out.Source)
	assert.Contains(t, src, "func (x Payload) Raw() *jsonpkg2.Blob {")
	assert.Contains(t, src, "func (x Payload) State() *modelrtpkg.State {")
	assert.Contains(t, src, "func (x Payload) Codec() *jsonpkg.Codec {")
}

func TestGenerateKeepsTemplateImportOfEncodingJSON(t *testing.T) {
	d := readDecl(t, `//go:build modelgen

package counter

import "encoding/json"

//modelgen:model
type _Envelope struct {
	Body json.RawMessage
}
`)
	out, err := Generate(d, nil, DefaultOptions(module))
	require.NoError(t, err)
	assert.Equal(t, "encoding/json", importNames(t, out.Source)["json"])
	assert.Contains(t, string(out.Source), "func (x Envelope) Body() *json.RawMessage {")
}
