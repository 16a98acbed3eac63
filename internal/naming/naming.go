// Package naming holds the pure string transforms modelgen uses to derive
// Go identifiers, file names and import paths from template declarations.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ClassToFileName converts a type name to its generated file stem. An
// underscore is inserted before each uppercase letter that directly follows
// a lowercase letter or digit, then the result is lowercased:
// UserProfile -> user_profile, HTTPClient -> httpclient.
func ClassToFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	var prev rune
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.ToLower(b.String())
}

// ClassToVariableName lowercases the first rune of name.
func ClassToVariableName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

// LowerInitial lowercases the leading run of capitals of name. When the run
// is followed by a lowercase letter its last capital starts the next word
// and is kept: ID -> id, HTTPClient -> httpClient, UserID -> userID.
func LowerInitial(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// CapitalizeFirst uppercases the first rune of s.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// PackageNameToVariableName turns an underscore separated name into a lower
// camel case identifier: user_profile -> userProfile.
func PackageNameToVariableName(pkg string) string {
	parts := strings.Split(pkg, "_")
	for i, p := range parts {
		parts[i] = CapitalizeFirst(p)
	}
	return ClassToVariableName(strings.Join(parts, ""))
}

// StripSigil removes the template sigil from a declaration name.
func StripSigil(name, sigil string) string {
	return strings.TrimPrefix(name, sigil)
}

// GeneratedFileName returns the file a generated type is written to.
func GeneratedFileName(typeName string) string {
	return ClassToFileName(typeName) + ".go"
}

// PackageAlias returns the package name Go tooling assumes for an import
// path: the last element, cut at its first dot.
func PackageAlias(path string) string {
	last := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		last = path[i+1:]
	}
	if i := strings.Index(last, "."); i >= 0 {
		last = last[:i]
	}
	return last
}
