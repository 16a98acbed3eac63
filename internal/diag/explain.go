package diag

import (
	"embed"
	"path"
	"slices"
	"strings"
)

//go:embed explain
var explainPages embed.FS

// Explain returns the markdown page describing code.
func Explain(code Code) (string, bool) {
	data, err := explainPages.ReadFile(path.Join("explain", string(code)+".md"))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Codes lists every code that has a page, sorted.
func Codes() []Code {
	entries, err := explainPages.ReadDir("explain")
	if err != nil {
		return nil
	}
	codes := make([]Code, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".md"); ok {
			codes = append(codes, Code(name))
		}
	}
	slices.Sort(codes)
	return codes
}
