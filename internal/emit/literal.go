package emit

import (
	"go/token"
	"modelgen/internal/model"
	"modelgen/internal/naming"
	"strconv"
	"strings"
)

// runtimeName is the identifier generated files use for the runtime
// package.
const runtimeName = "modelrt"

// FormatLiteral renders a default literal as a Go constant expression.
func FormatLiteral(l model.Literal) string {
	if l.Type == model.ScalarString {
		return strconv.Quote(l.Value)
	}
	return l.Value
}

// FormatLiterals renders literals as a comma separated argument list.
func FormatLiterals(ls []model.Literal) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = FormatLiteral(l)
	}
	return strings.Join(parts, ", ")
}

// GoType renders t as a Go type expression.
func GoType(t model.Type) string {
	switch t.Kind {
	case model.KindScalar:
		return t.Scalar.GoName()
	case model.KindSequence:
		return runtimeName + ".List[" + GoType(*t.Elem) + "]"
	case model.KindMap:
		return runtimeName + ".Map[" + GoType(*t.Key) + ", " + GoType(*t.Value) + "]"
	case model.KindReference:
		if t.Ref.Package != "" {
			return t.Ref.Package + "." + t.Ref.Name
		}
		return t.Ref.Name
	}
	return "any"
}

// StorageType is the type of the unexported field holding f, and of its
// accessor's result.
func StorageType(f model.Field) string {
	if f.Nullable() {
		return "*" + GoType(f.Type)
	}
	return GoType(f.Type)
}

// BuilderType is the type of f's builder field. Containers are staged in
// append-only runtime builders whether nullable or not.
func BuilderType(f model.Field) string {
	switch f.Type.Kind {
	case model.KindSequence:
		return runtimeName + ".ListBuilder[" + GoType(*f.Type.Elem) + "]"
	case model.KindMap:
		return runtimeName + ".MapBuilder[" + GoType(*f.Type.Key) + ", " + GoType(*f.Type.Value) + "]"
	}
	return StorageType(f)
}

// FieldIdent is the unexported storage name of a field, suffixed with an
// underscore when it would be a keyword.
func FieldIdent(name string) string {
	id := naming.LowerInitial(name)
	if token.IsKeyword(id) {
		return id + "_"
	}
	return id
}

// JSONTag renders the struct tag of a wire field.
func JSONTag(f model.Field) string {
	opts := ""
	if f.Nullable() {
		opts = ",omitempty"
	}
	return "`json:" + strconv.Quote(f.WireName+opts) + "`"
}

// Comment renders text as a line comment block, or "" for empty text.
func Comment(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			b.WriteString("//\n")
			continue
		}
		b.WriteString("// " + line + "\n")
	}
	return b.String()
}

// ImportSpec renders one import line.
func ImportSpec(alias, path string) string {
	if alias == "" {
		return strconv.Quote(path)
	}
	return alias + " " + strconv.Quote(path)
}
