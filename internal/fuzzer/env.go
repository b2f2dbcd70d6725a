package fuzzer

import (
	"fmt"

	"github.com/funvibe/funfuzz/internal/modules"
)

// Env is the immutable snapshot one fuzz run operates on: the resolved
// function handle, its validators, and the validated options. All mutable
// run state lives inside Fuzz and is owned exclusively by the loop.
type Env struct {
	Function   *modules.FunctionDef
	Validators []*modules.ValidatorDef
	Options    Options
}

// Setup resolves the target function from the registry and prepares an
// environment for one run. It fails fast on invalid options, unresolvable
// targets, or argument constraints the generator cannot honor — nothing is
// generated from a half-valid environment.
//
// Call Setup once per run: Load hands out a fresh function handle, so
// edits to a re-registered module are picked up and override application
// never leaks across runs.
func Setup(opts Options, reg *modules.Registry, module, function string) (*Env, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	def, validators, err := reg.Load(module, function)
	if err != nil {
		return nil, fmt.Errorf("setup %s.%s: %w", module, function, err)
	}

	for _, ov := range opts.Overrides {
		for _, arg := range def.Args {
			if arg.Name == ov.Arg {
				ov.apply(arg)
			}
		}
	}
	for _, arg := range def.Args {
		arg.Normalize()
		if err := arg.Validate(); err != nil {
			return nil, err
		}
	}

	if !opts.UseProperty {
		validators = nil
	}
	return &Env{Function: def, Validators: validators, Options: opts}, nil
}
