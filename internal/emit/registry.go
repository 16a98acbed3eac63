package emit

import (
	"bytes"
	"fmt"
	"modelgen/internal/diag"
	"slices"

	"github.com/dave/jennifer/jen"
)

// RenderRegistry renders the serializers.go file of a generated package. It
// registers the serializer of every listed type with the runtime registry.
func RenderRegistry(pkg string, typeNames []string, opts Options) ([]byte, error) {
	if opts.RuntimePath == "" {
		opts = DefaultOptions()
	}
	names := slices.Clone(typeNames)
	slices.Sort(names)
	names = slices.Compact(names)

	f := jen.NewFile(pkg)
	f.HeaderComment(HeaderPrefix + ". DO NOT EDIT.")
	f.ImportName(opts.RuntimePath, runtimeName)
	f.Func().Id("init").Params().BlockFunc(func(g *jen.Group) {
		for _, name := range names {
			g.Qual(opts.RuntimePath, "Register").Call(jen.Id(SerializerVar(name)))
		}
	})

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, diag.Internal(pkg+"/"+SerializersFile, fmt.Errorf("render registry: %w", err))
	}
	return buf.Bytes(), nil
}
