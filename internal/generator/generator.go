// Package generator runs the validate, analyze and emit stages over
// discovered templates and writes the results.
package generator

import (
	"modelgen/internal/analyze"
	"modelgen/internal/decl"
	"modelgen/internal/emit"
	"modelgen/internal/logging"
	"modelgen/internal/naming"
	"modelgen/internal/validate"
)

// Options configures generation.
type Options struct {
	// Module is the consuming module path.
	Module string
	Rules  validate.Rules
	Policy naming.ImportPolicy
	// Workers bounds the declarations processed at once. Zero or less
	// means one per declaration.
	Workers int
}

// DefaultOptions returns options for module.
func DefaultOptions(module string) Options {
	return Options{
		Module: module,
		Rules:  validate.DefaultRules(),
		Policy: naming.DefaultPolicy(),
	}
}

func (o Options) analyzeOptions() analyze.Options {
	return analyze.Options{Rules: o.Rules, Policy: o.Policy, Module: o.Module}
}

func (o Options) emitOptions() emit.Options {
	return emit.Options{RuntimePath: o.Policy.RuntimePrefix}
}

// Generate renders one declaration. Validation runs first and stops the
// declaration on any violation; analysis and emission only see valid
// input. symbols may be nil when no other template can be referenced.
func Generate(d *decl.Declaration, symbols *analyze.Symbols, opts Options) (*emit.Output, error) {
	if err := validate.Validate(d, opts.Rules); err != nil {
		logging.GenerateDebug("%s rejected by validation", d.Name)
		return nil, err
	}
	m, err := analyze.Analyze(d, symbols, opts.analyzeOptions())
	if err != nil {
		logging.GenerateDebug("%s rejected by analysis", d.Name)
		return nil, err
	}
	return emit.Emit(m, opts.emitOptions())
}
