package frontend

import (
	"bytes"
	"fmt"
	"io/fs"
	"modelgen/internal/logging"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// DefaultIncludes are the globs template discovery uses when none are
// configured.
var DefaultIncludes = []string{"**/*.go"}

// DefaultExcludes are always applied on top of configured excludes.
var DefaultExcludes = []string{
	"**/*_test.go",
	"**/testdata/**",
	"**/vendor/**",
	"**/.git/**",
	"**/_*/**",
}

// GeneratedExclude returns the exclude pattern of the directories generated
// code is written to, which end in marker.
func GeneratedExclude(marker string) string {
	var b strings.Builder
	for _, r := range marker {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return "**/*" + b.String() + "/**"
}

// Discover walks root and returns the Go files that match includes, match
// none of excludes and contain the model directive. Paths are returned in
// lexical order.
func Discover(fsys afero.Fs, root string, includes, excludes []string, directive string) ([]string, error) {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	for _, p := range slices.Concat(includes, excludes) {
		if err := validatePattern(p); err != nil {
			return nil, err
		}
	}
	excludes = slices.Concat(DefaultExcludes, excludes)
	needle := []byte(directive)

	var files []string
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if rel != "." && matchesDir(excludes, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchesAny(includes, rel) || matchesAny(excludes, rel) {
			return nil
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !bytes.Contains(data, needle) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover templates under %s: %w", root, err)
	}
	logging.FrontendDebug("discovered %d template files under %s", len(files), root)
	return files, nil
}

// SkipDir reports whether discovery skips the directory rel, a slash
// separated path relative to the discovery root.
func SkipDir(excludes []string, rel string) bool {
	return rel != "." && matchesDir(slices.Concat(DefaultExcludes, excludes), rel)
}

// Candidate reports whether the file rel could hold templates, judging by
// its path alone.
func Candidate(includes, excludes []string, rel string) bool {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	return matchesAny(includes, rel) && !matchesAny(slices.Concat(DefaultExcludes, excludes), rel)
}

func validatePattern(pattern string) error {
	clean := filepath.ToSlash(filepath.Clean(pattern))
	if filepath.IsAbs(pattern) || strings.HasPrefix(clean, "/") {
		return fmt.Errorf("invalid pattern %q: absolute paths not allowed", pattern)
	}
	if slices.Contains(strings.Split(clean, "/"), "..") {
		return fmt.Errorf("invalid pattern %q: parent directory references not allowed", pattern)
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", pattern)
	}
	return nil
}

// matchesDir reports whether a directory falls under a "dir/**" pattern.
func matchesDir(patterns []string, rel string) bool {
	for _, p := range patterns {
		dirPattern, ok := strings.CutSuffix(p, "/**")
		if !ok {
			continue
		}
		if ok, err := doublestar.Match(dirPattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
