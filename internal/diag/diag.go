// Package diag defines the structured failures modelgen reports for a
// declaration. Every failure wraps one of the sentinel kinds so callers can
// tell "fix your model" apart from "generator bug" with errors.Is.
package diag

import (
	"errors"
	"fmt"
	"modelgen/internal/decl"
	"strings"
)

var (
	// ErrValidation marks a template that breaks an authoring rule.
	ErrValidation = errors.New("validation failed")
	// ErrShapeMismatch marks a default literal whose shape disagrees with
	// its field type. Reaching it means the generator itself is wrong.
	ErrShapeMismatch = errors.New("default literal shape mismatch")
	// ErrUnresolvedImport marks a field type whose declaration cannot be
	// located.
	ErrUnresolvedImport = errors.New("unresolved import")
	// ErrInternal marks generated text that does not parse.
	ErrInternal = errors.New("internal generator error")
)

// Code identifies a diagnostic for `modelgen explain`.
type Code string

const (
	CodeNamingConvention Code = "naming-convention"
	CodeExplicitAccessor Code = "explicit-accessor"
	CodeMethod           Code = "method"
	CodeEmbeddedField    Code = "embedded-field"
	CodeImmutableField   Code = "immutable-field"
	CodeRawContainer     Code = "raw-container"
	CodeUnsupportedType  Code = "unsupported-type"
	CodeDuplicateField   Code = "duplicate-field"
	CodeReservedName     Code = "reserved-name"
	CodeUnknownOption    Code = "unknown-option"
	CodeInvalidDefault   Code = "invalid-default"
	CodeNotAStruct       Code = "not-a-struct"
	CodeOutputCollision  Code = "output-collision"
	CodeShapeMismatch    Code = "shape-mismatch"
	CodeUnresolvedImport Code = "unresolved-import"
	CodeInternal         Code = "internal"
)

// Error is one diagnostic.
type Error struct {
	Kind        error
	Code        Code
	Declaration string
	Member      string
	Message     string
	Suggestion  string
	Pos         decl.Pos
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Pos.File != "" {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Subject())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	return b.String()
}

// Unwrap returns the sentinel kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Subject names the declaration and member at fault.
func (e *Error) Subject() string {
	if e.Member == "" {
		return e.Declaration
	}
	return e.Declaration + "." + e.Member
}

// Validation returns a validation diagnostic.
func Validation(code Code, declaration, member string, pos decl.Pos, suggestion, format string, args ...any) *Error {
	return &Error{
		Kind:        ErrValidation,
		Code:        code,
		Declaration: declaration,
		Member:      member,
		Message:     fmt.Sprintf(format, args...),
		Suggestion:  suggestion,
		Pos:         pos,
	}
}

// ShapeMismatch returns a shape-mismatch defect.
func ShapeMismatch(declaration, member string, pos decl.Pos, format string, args ...any) *Error {
	return &Error{
		Kind:        ErrShapeMismatch,
		Code:        CodeShapeMismatch,
		Declaration: declaration,
		Member:      member,
		Message:     fmt.Sprintf(format, args...),
		Suggestion:  "report this as a modelgen bug together with the template",
		Pos:         pos,
	}
}

// UnresolvedImport reports a field type that names no known declaration.
func UnresolvedImport(declaration, member, typeName string, pos decl.Pos, suggestion string) *Error {
	return &Error{
		Kind:        ErrUnresolvedImport,
		Code:        CodeUnresolvedImport,
		Declaration: declaration,
		Member:      member,
		Message:     fmt.Sprintf("cannot resolve type %s", typeName),
		Suggestion:  suggestion,
		Pos:         pos,
	}
}

// Internal wraps a failure of the generator itself.
func Internal(declaration string, err error) *Error {
	return &Error{
		Kind:        ErrInternal,
		Code:        CodeInternal,
		Declaration: declaration,
		Message:     err.Error(),
		Suggestion:  "report this as a modelgen bug together with the template",
	}
}

// List collects every diagnostic of one declaration.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d errors:\n\t%s", len(l), strings.Join(msgs, "\n\t"))
}

// Unwrap exposes every diagnostic to errors.Is and errors.As.
func (l List) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns l as an error, or nil when it is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Flatten extracts the diagnostics carried by err. Errors that are not
// diagnostics come back as internal diagnostics of the named declaration.
func Flatten(declaration string, err error) []*Error {
	if err == nil {
		return nil
	}
	var list List
	if errors.As(err, &list) {
		return list
	}
	var e *Error
	if errors.As(err, &e) {
		return []*Error{e}
	}
	return []*Error{Internal(declaration, err)}
}

// Exit codes returned by the CLI.
const (
	ExitOK       = 0
	ExitModel    = 1
	ExitInternal = 2
)

// ExitCode maps an error to the process exit status. Generator defects win
// over model errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrShapeMismatch), errors.Is(err, ErrInternal):
		return ExitInternal
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnresolvedImport):
		return ExitModel
	}
	return ExitInternal
}

// IsDefect reports whether err points at the generator rather than the
// template.
func IsDefect(err error) bool {
	return errors.Is(err, ErrShapeMismatch) || errors.Is(err, ErrInternal)
}
