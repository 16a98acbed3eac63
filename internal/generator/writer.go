package generator

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"modelgen/internal/emit"
	"modelgen/internal/logging"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// ChangeKind says what writing a report would do to a file.
type ChangeKind int

const (
	ChangeCreate ChangeKind = iota
	ChangeUpdate
	ChangeRemove
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreate:
		return "create"
	case ChangeUpdate:
		return "update"
	case ChangeRemove:
		return "remove"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is one file that differs from what a report would write.
type Change struct {
	Path string
	Kind ChangeKind
}

// WriteStats lists what Write did, by path.
type WriteStats struct {
	Written   []string
	Unchanged []string
	Removed   []string
}

// Writer puts a report's output on disk. Generated files are always
// replaced whole.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a writer over fsys.
func NewWriter(fsys afero.Fs) *Writer {
	return &Writer{fs: fsys}
}

type planned struct {
	path   string
	source []byte
}

type plan struct {
	files []planned
	// keep holds every path the pass owns in each output directory,
	// including the would-be files of failed declarations.
	keep map[string]map[string]bool
}

func newPlan(r *Report) plan {
	p := plan{keep: make(map[string]map[string]bool)}
	own := func(path string) {
		dir := filepath.Dir(path)
		if p.keep[dir] == nil {
			p.keep[dir] = make(map[string]bool)
		}
		p.keep[dir][path] = true
	}
	for _, res := range r.Results {
		own(res.Path())
		if res.Err != nil {
			// the registry of a package with a failed template stays
			// until the package generates cleanly
			own(filepath.Join(res.OutDir, emit.SerializersFile))
			continue
		}
		p.files = append(p.files, planned{path: res.Path(), source: res.Output.Source})
	}
	for _, reg := range r.Registries {
		own(reg.Path())
		p.files = append(p.files, planned{path: reg.Path(), source: reg.Source})
	}
	return p
}

// Write writes every generated file of r whose content changed and
// removes stale generated files from the output directories r touched.
// Files of failed declarations are left as they are.
func (w *Writer) Write(r *Report) (*WriteStats, error) {
	p := newPlan(r)
	stats := &WriteStats{}
	for _, f := range p.files {
		same, err := w.unchanged(f.path, f.source)
		if err != nil {
			return stats, err
		}
		if same {
			stats.Unchanged = append(stats.Unchanged, f.path)
			continue
		}
		if err := w.writeFile(f.path, f.source); err != nil {
			return stats, err
		}
		logging.WriterDebug("wrote %s (%d bytes)", f.path, len(f.source))
		stats.Written = append(stats.Written, f.path)
	}
	stale, err := w.stale(p)
	if err != nil {
		return stats, err
	}
	for _, path := range stale {
		if err := w.fs.Remove(path); err != nil {
			return stats, fmt.Errorf("remove stale %s: %w", path, err)
		}
		logging.WriterDebug("removed stale %s", path)
		stats.Removed = append(stats.Removed, path)
	}
	logging.Get(logging.CategoryWriter).Info("run %s: %d written, %d unchanged, %d removed", r.RunID, len(stats.Written), len(stats.Unchanged), len(stats.Removed))
	return stats, nil
}

// Diff reports the changes Write would make, without making them.
func (w *Writer) Diff(r *Report) ([]Change, error) {
	p := newPlan(r)
	var changes []Change
	for _, f := range p.files {
		exists, err := afero.Exists(w.fs, f.path)
		if err != nil {
			return nil, err
		}
		if !exists {
			changes = append(changes, Change{Path: f.path, Kind: ChangeCreate})
			continue
		}
		same, err := w.unchanged(f.path, f.source)
		if err != nil {
			return nil, err
		}
		if !same {
			changes = append(changes, Change{Path: f.path, Kind: ChangeUpdate})
		}
	}
	stale, err := w.stale(p)
	if err != nil {
		return nil, err
	}
	for _, path := range stale {
		changes = append(changes, Change{Path: path, Kind: ChangeRemove})
	}
	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })
	return changes, nil
}

func (w *Writer) unchanged(path string, source []byte) (bool, error) {
	current, err := afero.ReadFile(w.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return bytes.Equal(current, source), nil
}

// writeFile replaces path through a temporary sibling so readers never see
// a partial file.
func (w *Writer) writeFile(path string, source []byte) error {
	dir := filepath.Dir(path)
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	if err := afero.WriteFile(w.fs, tmp, source, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := w.fs.Rename(tmp, path); err != nil {
		_ = w.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// stale lists the generated files in the plan's directories that the pass
// no longer owns. Files without the generated header are never touched.
func (w *Writer) stale(p plan) ([]string, error) {
	dirs := make([]string, 0, len(p.keep))
	for dir := range p.keep {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)

	var out []string
	for _, dir := range dirs {
		entries, err := afero.ReadDir(w.fs, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".go" {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if p.keep[dir][path] {
				continue
			}
			generated, err := w.isGenerated(path)
			if err != nil {
				return nil, err
			}
			if generated {
				out = append(out, path)
			}
		}
	}
	return out, nil
}

func (w *Writer) isGenerated(path string) (bool, error) {
	content, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return bytes.HasPrefix(content, []byte(emit.HeaderPrefix)), nil
}
