package naming

import (
	"slices"
	"strings"
)

// ImportPolicy controls how template imports are rewritten for generated
// code.
type ImportPolicy struct {
	// RuntimePrefix is the import path of the runtime support library.
	// Imports under it are never copied into generated files.
	RuntimePrefix string
	// ModelsDir is the directory element that marks a template package.
	ModelsDir string
	// Marker is appended to a template package directory to name its
	// generated package.
	Marker string
	// RootMarker is an optional prefix standing for the consuming module
	// root, e.g. "lib:" in lib:models/user. A leading "/" always does.
	RootMarker string
	// LegacyPackages lists consuming modules whose templates already import
	// marked paths. For them a marked path is left as is.
	LegacyPackages []string
}

// DefaultPolicy returns the policy used when no configuration overrides it.
func DefaultPolicy() ImportPolicy {
	return ImportPolicy{
		RuntimePrefix: "modelgen/pkg/modelrt",
		ModelsDir:     "models",
		Marker:        ".model",
	}
}

// RewriteImportPath rewrites path with the default policy.
func RewriteImportPath(path, consumingPackage string) (string, bool) {
	return DefaultPolicy().RewriteImportPath(path, consumingPackage)
}

// RewriteImportPath returns the import path generated code should use for
// a template import. ok is false when the import must be dropped.
func (p ImportPolicy) RewriteImportPath(path, consumingPackage string) (rewritten string, ok bool) {
	if p.isRuntime(path) {
		return "", false
	}
	if p.isStdlib(path, consumingPackage) {
		return path, true
	}
	qualified := p.Qualify(path, consumingPackage)
	if p.isRuntime(qualified) {
		return "", false
	}
	if p.underModels(qualified) {
		return p.mark(qualified, consumingPackage), true
	}
	return qualified, true
}

// GeneratedDir returns the directory generated code for templates in dir
// is written to.
func (p ImportPolicy) GeneratedDir(dir string) string {
	return strings.TrimSuffix(dir, "/") + p.Marker
}

func (p ImportPolicy) isRuntime(path string) bool {
	if p.RuntimePrefix == "" {
		return false
	}
	return path == p.RuntimePrefix || strings.HasPrefix(path, p.RuntimePrefix+"/")
}

func (p ImportPolicy) isStdlib(path, module string) bool {
	if strings.HasPrefix(path, "/") {
		return false
	}
	if p.RootMarker != "" && strings.HasPrefix(path, p.RootMarker) {
		return false
	}
	if module != "" && (path == module || strings.HasPrefix(path, module+"/")) {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

// Qualify turns a module-relative path into a full import path. Other
// paths are returned unchanged.
func (p ImportPolicy) Qualify(path, module string) string {
	var rest string
	switch {
	case p.RootMarker != "" && strings.HasPrefix(path, p.RootMarker):
		rest = strings.TrimPrefix(path[len(p.RootMarker):], "/")
	case strings.HasPrefix(path, "/"):
		rest = strings.TrimLeft(path, "/")
	default:
		return path
	}
	if module == "" {
		return rest
	}
	if rest == "" {
		return module
	}
	return module + "/" + rest
}

func (p ImportPolicy) underModels(path string) bool {
	elems := strings.Split(path, "/")
	return slices.Contains(elems[:len(elems)-1], p.ModelsDir)
}

func (p ImportPolicy) mark(path, module string) string {
	dir, last := "", path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		dir, last = path[:i+1], path[i+1:]
	}
	stem, ext := splitVersion(last)
	if slices.Contains(p.LegacyPackages, module) && strings.HasSuffix(stem, p.Marker) {
		return path
	}
	return dir + stem + p.Marker + ext
}

// splitVersion splits a gopkg.in style ".vN" suffix off an element.
func splitVersion(elem string) (stem, ext string) {
	i := strings.LastIndex(elem, ".")
	if i <= 0 || !isMajorVersion(elem[i+1:]) {
		return elem, ""
	}
	return elem[:i], elem[i:]
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
