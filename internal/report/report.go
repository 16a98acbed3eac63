// Package report renders pass results and diagnostics for a terminal.
package report

import (
	"fmt"
	"io"
	"modelgen/internal/diag"
	"modelgen/internal/generator"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
	Muted       = lipgloss.Color("#6a737d")
)

// Styles holds the styled components of a report.
type Styles struct {
	Title   lipgloss.Style
	Path    lipgloss.Style
	Code    lipgloss.Style
	Hint    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles builds the styles for r. A renderer over a non-terminal writer
// yields plain text.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true),
		Path:    r.NewStyle().Foreground(Info),
		Code:    r.NewStyle().Foreground(Warning),
		Hint:    r.NewStyle().Foreground(Muted).Italic(true),
		Muted:   r.NewStyle().Foreground(Muted),
		Success: r.NewStyle().Foreground(Success).Bold(true),
		Error:   r.NewStyle().Foreground(Destructive).Bold(true),
		Warning: r.NewStyle().Foreground(Warning).Bold(true),
		Badge:   r.NewStyle().Foreground(Destructive).Bold(true).Reverse(true).Padding(0, 1),
	}
}

// Printer writes reports to one writer.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter returns a printer over w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: w, styles: NewStyles(lipgloss.NewRenderer(w))}
}

// Diagnostics prints every failure of r, grouped by declaration. Generator
// defects get their own heading so they are not mistaken for template
// errors.
func (p *Printer) Diagnostics(r *generator.Report) {
	s := p.styles
	for _, fe := range r.FileErrors {
		fmt.Fprintf(p.out, "%s %s\n", s.Error.Render("✗"), s.Path.Render(fe.Path))
		fmt.Fprintf(p.out, "    %s\n", fe.Err)
	}
	for _, res := range r.Failed() {
		diags := diag.Flatten(res.Decl.Name, res.Err)
		heading := s.Error.Render("✗")
		if diag.IsDefect(res.Err) {
			heading += " " + s.Badge.Render("generator bug")
		}
		fmt.Fprintf(p.out, "%s %s  %s\n", heading, s.Title.Render(res.Decl.Name), s.Path.Render(res.Decl.Pos.String()))
		for _, d := range diags {
			p.diagnostic(d)
		}
	}
}

func (p *Printer) diagnostic(d *diag.Error) {
	s := p.styles
	line := "    " + s.Code.Render(string(d.Code)) + "  "
	if d.Member != "" {
		line += s.Title.Render(d.Member) + ": "
	}
	line += d.Message
	if d.Pos.IsValid() && d.Member != "" {
		line += "  " + s.Muted.Render(d.Pos.String())
	}
	fmt.Fprintln(p.out, line)
	if d.Suggestion != "" {
		fmt.Fprintf(p.out, "        %s\n", s.Hint.Render("hint: "+d.Suggestion))
	}
}

// Summary prints the one-line outcome of a pass. stats may be nil when
// nothing was written.
func (p *Printer) Summary(r *generator.Report, stats *generator.WriteStats) {
	s := p.styles
	failed := len(r.Failed()) + len(r.FileErrors)
	parts := []string{fmt.Sprintf("%d generated", r.Generated())}
	if failed > 0 {
		parts = append(parts, s.Error.Render(fmt.Sprintf("%d failed", failed)))
	}
	if stats != nil {
		parts = append(parts, fmt.Sprintf("%d written", len(stats.Written)))
		if len(stats.Removed) > 0 {
			parts = append(parts, fmt.Sprintf("%d removed", len(stats.Removed)))
		}
	}
	mark := s.Success.Render("✓")
	if failed > 0 {
		mark = s.Error.Render("✗")
	}
	fmt.Fprintf(p.out, "%s %s %s\n", mark, strings.Join(parts, ", "),
		s.Muted.Render(fmt.Sprintf("in %v (run %s)", r.Elapsed.Round(time.Millisecond), shortID(r.RunID))))
}

// Changes prints the files a write would touch.
func (p *Printer) Changes(changes []generator.Change) {
	s := p.styles
	if len(changes) == 0 {
		fmt.Fprintln(p.out, s.Success.Render("✓")+" generated files are up to date")
		return
	}
	for _, c := range changes {
		mark := s.Warning.Render("~")
		switch c.Kind {
		case generator.ChangeCreate:
			mark = s.Success.Render("+")
		case generator.ChangeRemove:
			mark = s.Error.Render("-")
		}
		fmt.Fprintf(p.out, "%s %s %s\n", mark, s.Path.Render(c.Path), s.Muted.Render(c.Kind.String()))
	}
}

// Markdown renders md with glamour. style names a glamour standard style;
// empty picks one from the terminal.
func (p *Printer) Markdown(md, style string) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(80)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(p.out, out)
	return err
}

// Explain renders the explanation page of a diagnostic code.
func (p *Printer) Explain(code, style string) error {
	md, ok := diag.Explain(diag.Code(code))
	if !ok {
		known := make([]string, 0, len(diag.Codes()))
		for _, c := range diag.Codes() {
			known = append(known, string(c))
		}
		return fmt.Errorf("unknown diagnostic code %q (known: %s)", code, strings.Join(known, ", "))
	}
	return p.Markdown(md, style)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
