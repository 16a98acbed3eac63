package config

import (
	"errors"
	"fmt"
	"modelgen/internal/frontend"
	"modelgen/internal/generator"
	"modelgen/internal/logging"
	"modelgen/internal/naming"
	"modelgen/internal/validate"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "modelgen.yaml"

// Config holds all modelgen configuration.
type Config struct {
	// Module is the consuming module path. Empty means read it from the
	// nearest go.mod.
	Module string `yaml:"module"`

	Templates  TemplatesConfig  `yaml:"templates"`
	Naming     NamingConfig     `yaml:"naming"`
	Imports    ImportsConfig    `yaml:"imports"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Watch      WatchConfig      `yaml:"watch"`
}

// TemplatesConfig selects the template files.
type TemplatesConfig struct {
	Include   []string `yaml:"include" validate:"required,dive,required"`
	Exclude   []string `yaml:"exclude" validate:"dive,required"`
	BuildTag  string   `yaml:"build_tag" validate:"required"`
	Directive string   `yaml:"directive" validate:"required,startswith=//"`
}

// NamingConfig configures template and container recognition.
type NamingConfig struct {
	Sigil          string `yaml:"sigil" validate:"required"`
	Marker         string `yaml:"marker" validate:"required,startswith=."`
	SequencePrefix string `yaml:"sequence_prefix" validate:"required"`
	MapPrefix      string `yaml:"map_prefix" validate:"required"`
}

// ImportsConfig configures import rewriting.
type ImportsConfig struct {
	RuntimePrefix  string   `yaml:"runtime_prefix" validate:"required"`
	ModelsDir      string   `yaml:"models_dir" validate:"required"`
	RootMarker     string   `yaml:"root_marker"`
	LegacyPackages []string `yaml:"legacy_packages,omitempty"`
}

// GenerationConfig configures the build pass.
type GenerationConfig struct {
	// Workers bounds concurrent declarations; 0 means unbounded.
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce" validate:"required"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	policy := naming.DefaultPolicy()
	rules := validate.DefaultRules()
	return &Config{
		Templates: TemplatesConfig{
			Include:   slices.Clone(frontend.DefaultIncludes),
			Exclude:   slices.Clone(frontend.DefaultExcludes),
			BuildTag:  frontend.BuildTag,
			Directive: frontend.Directive,
		},
		Naming: NamingConfig{
			Sigil:          rules.Sigil,
			Marker:         policy.Marker,
			SequencePrefix: rules.SequencePrefix,
			MapPrefix:      rules.MapPrefix,
		},
		Imports: ImportsConfig{
			RuntimePrefix: policy.RuntimePrefix,
			ModelsDir:     policy.ModelsDir,
		},
		Generation: GenerationConfig{
			Workers: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
	}
}

// Load loads configuration from a YAML file over the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if module := os.Getenv("MODELGEN_MODULE"); module != "" {
		c.Module = module
	}
	if workers := os.Getenv("MODELGEN_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("ignoring MODELGEN_WORKERS=%q: %v", workers, err)
		} else {
			c.Generation.Workers = n
		}
	}
	if level := os.Getenv("MODELGEN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %s fails %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid config: watch.debounce: %w", err)
	}
	return nil
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// TemplateExcludes returns the configured excludes plus the pattern of the
// generated directories, so neither discovery nor watch walks its own output.
func (c *Config) TemplateExcludes() []string {
	return append(slices.Clone(c.Templates.Exclude), frontend.GeneratedExclude(c.Naming.Marker))
}

// Policy returns the import policy described by c.
func (c *Config) Policy() naming.ImportPolicy {
	return naming.ImportPolicy{
		RuntimePrefix:  c.Imports.RuntimePrefix,
		ModelsDir:      c.Imports.ModelsDir,
		Marker:         c.Naming.Marker,
		RootMarker:     c.Imports.RootMarker,
		LegacyPackages: c.Imports.LegacyPackages,
	}
}

// Rules returns the validation rules described by c.
func (c *Config) Rules() validate.Rules {
	return validate.Rules{
		Sigil:          c.Naming.Sigil,
		RuntimePath:    c.Imports.RuntimePrefix,
		SequencePrefix: c.Naming.SequencePrefix,
		MapPrefix:      c.Naming.MapPrefix,
	}
}

// GeneratorOptions returns the generation options for module.
func (c *Config) GeneratorOptions(module string) generator.Options {
	return generator.Options{
		Module:  module,
		Rules:   c.Rules(),
		Policy:  c.Policy(),
		Workers: c.Generation.Workers,
	}
}

// ReaderOptions returns the front end options for the module rooted at
// moduleRoot.
func (c *Config) ReaderOptions(moduleRoot, module string) frontend.Options {
	return frontend.Options{
		Directive:  c.Templates.Directive,
		BuildTag:   c.Templates.BuildTag,
		ModuleRoot: moduleRoot,
		Module:     module,
	}
}

// ErrNoModule is returned when no go.mod is found above a directory.
var ErrNoModule = errors.New("no go.mod found")

// FindModule walks up from dir to the nearest go.mod and returns its
// directory and module path.
func FindModule(dir string) (root, module string, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			module := modfile.ModulePath(data)
			if module == "" {
				return "", "", fmt.Errorf("%s declares no module path", gomod)
			}
			return dir, module, nil
		}
		if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("failed to read %s: %w", gomod, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", ErrNoModule
		}
		dir = parent
	}
}

// ResolveModule returns the module root and path to generate for. A
// configured module path wins over the one in go.mod; without a go.mod the
// root is dir itself.
func (c *Config) ResolveModule(dir string) (root, module string, err error) {
	root, module, err = FindModule(dir)
	if err != nil && !errors.Is(err, ErrNoModule) {
		return "", "", err
	}
	if c.Module != "" {
		module = c.Module
	}
	if module == "" {
		return "", "", fmt.Errorf("module path unknown: set module in %s, MODELGEN_MODULE or --module", FileName)
	}
	if root == "" {
		if root, err = filepath.Abs(dir); err != nil {
			return "", "", err
		}
	}
	return root, module, nil
}
