package generator

import (
	"context"
	"errors"
	"modelgen/internal/diag"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountSrc = `//go:build modelgen

package account

//modelgen:model
type _Account struct {
	ID      string ` + "`default:\"''\"`" + `
	Balance float64 ` + "`default:\"0\"`" + `
}
`

const userSrc = `//go:build modelgen

package user

import "example.com/shop/models/account"

//modelgen:model
type _User struct {
	Name    string ` + "`default:\"'anon'\"`" + `
	Account account.Account
}

//modelgen:model
type BadName struct {
	Count int
}
`

func shopFs(t *testing.T) (afero.Fs, []string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	paths := writeFiles(t, fs, map[string]string{
		"/shop/models/account/account.go": accountSrc,
		"/shop/models/user/user.go":       userSrc,
	})
	slices.Sort(paths)
	return fs, paths
}

func runShop(t *testing.T, fs afero.Fs, paths []string) *Report {
	t.Helper()
	report, err := NewPass(newReader(fs), DefaultOptions(module)).Run(context.Background(), paths)
	require.NoError(t, err)
	return report
}

func result(t *testing.T, r *Report, name string) Result {
	t.Helper()
	for _, res := range r.Results {
		if res.Decl.Name == name {
			return res
		}
	}
	t.Fatalf("no result for %s", name)
	return Result{}
}

func TestPassIsolatesFailures(t *testing.T) {
	fs, paths := shopFs(t)
	report := runShop(t, fs, paths)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Files)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Generated())

	bad := result(t, report, "BadName")
	assert.Nil(t, bad.Output)
	assert.True(t, errors.Is(bad.Err, diag.ErrValidation))
	assert.Equal(t, "/shop/models/user.model/bad_name.go", bad.Path())

	user := result(t, report, "_User")
	require.NoError(t, user.Err)
	assert.Equal(t, "/shop/models/user.model", user.OutDir)
	assert.Equal(t, "user.go", user.FileName)
	assert.Contains(t, string(user.Output.Source), "\t\"example.com/shop/models/account.model\"\n")
	assert.Contains(t, string(user.Output.Source), "func (x User) Account() *account.Account {")

	assert.Error(t, report.Err())
	assert.True(t, errors.Is(report.Err(), diag.ErrValidation))
}

func TestPassRegistries(t *testing.T) {
	fs, paths := shopFs(t)
	report := runShop(t, fs, paths)

	require.Len(t, report.Registries, 2)
	assert.Equal(t, "/shop/models/account.model/serializers.go", report.Registries[0].Path())
	assert.Equal(t, "/shop/models/user.model/serializers.go", report.Registries[1].Path())
	assert.Equal(t, "user", report.Registries[1].Package)
	src := string(report.Registries[1].Source)
	assert.Contains(t, src, "modelrt.Register(userSerializer)")
	assert.NotContains(t, src, "badNameSerializer")
}

func TestPassUnresolvedReference(t *testing.T) {
	fs := afero.NewMemMapFs()
	paths := writeFiles(t, fs, map[string]string{
		"/shop/models/user/user.go": userSrc,
		"/shop/models/account/account.go": `//go:build modelgen

package account

//modelgen:model
type _Ledger struct {
	Total int
}
`,
	})
	slices.Sort(paths)
	report := runShop(t, fs, paths)

	user := result(t, report, "_User")
	require.Error(t, user.Err)
	assert.True(t, errors.Is(user.Err, diag.ErrUnresolvedImport))
	ledger := result(t, report, "_Ledger")
	assert.NoError(t, ledger.Err)
}

func TestPassOutputCollision(t *testing.T) {
	fs := afero.NewMemMapFs()
	paths := writeFiles(t, fs, map[string]string{
		"/shop/models/misc/misc.go": `//go:build modelgen

package misc

//modelgen:model
type _Serializers struct {
	Count int
}

//modelgen:model
type _Plain struct {
	Count int
}
`,
	})
	report := runShop(t, fs, paths)

	clash := result(t, report, "_Serializers")
	require.Error(t, clash.Err)
	var e *diag.Error
	require.True(t, errors.As(clash.Err, &e))
	assert.Equal(t, diag.CodeOutputCollision, e.Code)
	assert.NoError(t, result(t, report, "_Plain").Err)

	require.Len(t, report.Registries, 1)
	assert.NotContains(t, string(report.Registries[0].Source), "serializersSerializer")
}

func TestPassUnparsableFile(t *testing.T) {
	fs, paths := shopFs(t)
	require.NoError(t, afero.WriteFile(fs, "/shop/models/broken/broken.go", []byte("package broken\n\ntype {"), 0o644))
	paths = append(paths, "/shop/models/broken/broken.go")

	report := runShop(t, fs, paths)
	require.Len(t, report.FileErrors, 1)
	assert.Equal(t, "/shop/models/broken", report.FileErrors[0].Path)
	assert.Len(t, report.Results, 3)
	assert.Error(t, report.Err())
}

func TestPassSameNamedPackagesBindDistinctSerializers(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "//go:build modelgen\n\npackage user\n\n//modelgen:model\ntype _User struct {\n\tName string\n}\n"
	paths := writeFiles(t, fs, map[string]string{
		"/shop/models/a/user/user.go": src,
		"/shop/models/b/user/user.go": src,
	})
	slices.Sort(paths)

	report := runShop(t, fs, paths)
	require.NoError(t, report.Err())
	require.Len(t, report.Results, 2)

	bindings := make(map[string]bool)
	for _, res := range report.Results {
		for _, dir := range []string{"a", "b"} {
			name := `"example.com/shop/models/` + dir + `/user.model.User"`
			if strings.Contains(string(res.Output.Source), name) {
				bindings[dir] = true
			}
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, bindings)
	assert.Len(t, report.Registries, 2)
}

func TestPassWorkerLimit(t *testing.T) {
	fs, paths := shopFs(t)
	opts := DefaultOptions(module)
	opts.Workers = 1
	report, err := NewPass(newReader(fs), opts).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Generated())
}

func TestPassCancelled(t *testing.T) {
	fs, paths := shopFs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewPass(newReader(fs), DefaultOptions(module)).Run(ctx, paths)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPassNoFiles(t *testing.T) {
	report, err := NewPass(newReader(afero.NewMemMapFs()), DefaultOptions(module)).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Registries)
	assert.NoError(t, report.Err())
}
