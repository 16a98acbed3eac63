package generator

import (
	"context"
	"errors"
	"fmt"
	"modelgen/internal/analyze"
	"modelgen/internal/decl"
	"modelgen/internal/diag"
	"modelgen/internal/emit"
	"modelgen/internal/frontend"
	"modelgen/internal/logging"
	"modelgen/internal/naming"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one declaration. Exactly one of Output and Err
// is set.
type Result struct {
	Decl   decl.Declaration
	OutDir string
	// FileName is the file the declaration generates, set whether or not
	// generation succeeded.
	FileName string
	Output   *emit.Output
	Err      error
}

// Path returns OutDir joined with FileName.
func (r Result) Path() string {
	return filepath.Join(r.OutDir, r.FileName)
}

// FileError is a template file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Registry is the rendered serializers.go of one generated package.
type Registry struct {
	Dir     string
	Package string
	Source  []byte
}

// Path returns the location of the registry file.
func (r Registry) Path() string {
	return filepath.Join(r.Dir, emit.SerializersFile)
}

// Report collects everything one pass produced.
type Report struct {
	RunID      string
	Files      int
	Results    []Result
	FileErrors []FileError
	Registries []Registry
	Elapsed    time.Duration
}

// Generated counts the declarations that rendered.
func (r *Report) Generated() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every failure of the pass, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, fe := range r.FileErrors {
		errs = append(errs, fe)
	}
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Pass generates every template of a set of files.
type Pass struct {
	reader *frontend.Reader
	opts   Options
}

// NewPass returns a pass reading templates with reader.
func NewPass(reader *frontend.Reader, opts Options) *Pass {
	return &Pass{reader: reader, opts: opts}
}

// Run reads files, generates each declaration found and renders the
// serializer registries. A failing declaration is recorded in its result
// and does not stop the others; the returned error is only set when ctx is
// done before the pass finishes.
func (p *Pass) Run(ctx context.Context, files []string) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Files: len(files)}
	log := logging.Get(logging.CategoryGenerate).With("run", report.RunID)
	log.Info("pass started: %d template files", len(files))

	var decls []decl.Declaration
	for _, group := range byDir(files) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed, err := p.reader.ReadFiles(group)
		if err != nil {
			// The package's files are read together, so one bad file
			// holds back its whole directory.
			log.Error("read %s failed: %v", filepath.Dir(group[0]), err)
			report.FileErrors = append(report.FileErrors, FileError{Path: filepath.Dir(group[0]), Err: err})
			continue
		}
		for _, f := range parsed {
			decls = append(decls, f.Decls...)
		}
	}

	symbols := analyze.NewSymbols(decls...)
	results := make([]Result, len(decls))
	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Workers > 0 {
		g.SetLimit(p.opts.Workers)
	}
	for i := range decls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d := &decls[i]
			out, err := Generate(d, symbols, p.opts)
			results[i] = Result{
				Decl:     *d,
				OutDir:   p.opts.Policy.GeneratedDir(d.Dir),
				FileName: naming.GeneratedFileName(naming.StripSigil(d.Name, p.opts.Rules.Sigil)),
				Output:   out,
				Err:      err,
			}
			if err != nil {
				log.Debug("%s failed: %v", d.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("pass cancelled: %v", err)
		return nil, err
	}

	checkCollisions(results)
	report.Results = results

	registries, err := p.registries(results)
	if err != nil {
		return nil, err
	}
	report.Registries = registries
	report.Elapsed = time.Since(start)
	log.Info("pass finished in %v: %d generated, %d failed, %d unreadable", report.Elapsed, report.Generated(), len(report.Failed()), len(report.FileErrors))
	return report, nil
}

// byDir groups paths by directory, keeping first-seen order of both the
// directories and the paths inside each.
func byDir(paths []string) [][]string {
	index := make(map[string]int)
	var groups [][]string
	for _, p := range paths {
		dir := filepath.Dir(p)
		i, ok := index[dir]
		if !ok {
			i = len(groups)
			index[dir] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}
	return groups
}

// checkCollisions fails every declaration whose output path is claimed by
// another declaration or by the serializer registry.
func checkCollisions(results []Result) {
	claims := make(map[string][]int)
	for i, r := range results {
		if r.Err == nil {
			claims[r.Path()] = append(claims[r.Path()], i)
		}
	}
	for path, idx := range claims {
		registry := filepath.Base(path) == emit.SerializersFile
		if len(idx) < 2 && !registry {
			continue
		}
		var names []string
		for _, i := range idx {
			names = append(names, results[i].Decl.Name)
		}
		for _, i := range idx {
			r := &results[i]
			msg := fmt.Sprintf("%s would be written by %v", path, names)
			if registry {
				msg = fmt.Sprintf("%s is the serializer registry of the package", path)
			}
			r.Err = diag.Validation(diag.CodeOutputCollision, r.Decl.Name, "", r.Decl.Pos,
				"rename one of the templates", "%s", msg)
			r.Output = nil
		}
	}
}

func (p *Pass) registries(results []Result) ([]Registry, error) {
	byOut := make(map[string]*Registry)
	types := make(map[string][]string)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if byOut[r.OutDir] == nil {
			byOut[r.OutDir] = &Registry{Dir: r.OutDir, Package: r.Output.Package}
		}
		types[r.OutDir] = append(types[r.OutDir], r.Output.TypeName)
	}
	dirs := make([]string, 0, len(byOut))
	for dir := range byOut {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)

	out := make([]Registry, 0, len(dirs))
	for _, dir := range dirs {
		reg := byOut[dir]
		src, err := emit.RenderRegistry(reg.Package, types[dir], p.opts.emitOptions())
		if err != nil {
			return nil, err
		}
		reg.Source = src
		out = append(out, *reg)
	}
	return out, nil
}
