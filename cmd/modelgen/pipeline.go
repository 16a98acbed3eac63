package main

import (
	"context"
	"fmt"
	"modelgen/internal/config"
	"modelgen/internal/frontend"
	"modelgen/internal/generator"
	"modelgen/internal/logging"
	"modelgen/internal/report"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// pipeline wires discovery, the build pass and the writer for one
// directory tree.
type pipeline struct {
	cfg     *config.Config
	dir     string
	fs      afero.Fs
	pass    *generator.Pass
	writer  *generator.Writer
	printer *report.Printer
}

func newPipeline(o *options, dir string) (*pipeline, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	moduleRoot, module, err := o.cfg.ResolveModule(abs)
	if err != nil {
		return nil, err
	}
	logging.Boot("module %s rooted at %s", module, moduleRoot)

	fs := afero.NewOsFs()
	reader := frontend.NewReader(fs, o.cfg.ReaderOptions(moduleRoot, module))
	return &pipeline{
		cfg:     o.cfg,
		dir:     abs,
		fs:      fs,
		pass:    generator.NewPass(reader, o.cfg.GeneratorOptions(module)),
		writer:  generator.NewWriter(fs),
		printer: report.NewPrinter(o.stdout),
	}, nil
}

// run discovers the templates under the pipeline's directory and generates
// them in memory.
func (p *pipeline) run(ctx context.Context) (*generator.Report, error) {
	t := p.cfg.Templates
	files, err := frontend.Discover(p.fs, p.dir, t.Include, p.cfg.TemplateExcludes(), t.Directive)
	if err != nil {
		return nil, err
	}
	return p.pass.Run(ctx, files)
}

// generate runs a pass, writes what succeeded and prints the outcome.
// Template failures are in the report; the error is for failures of the
// run itself.
func (p *pipeline) generate(ctx context.Context) (*generator.Report, error) {
	rep, err := p.run(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := p.writer.Write(rep)
	if err != nil {
		return nil, fmt.Errorf("write generated files: %w", err)
	}
	p.printer.Diagnostics(rep)
	p.printer.Summary(rep, stats)
	return rep, nil
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// maxOneDir accepts an optional directory argument.
var maxOneDir = cobra.MaximumNArgs(1)
