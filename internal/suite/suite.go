// Package suite reads fuzz campaign configuration from YAML: which
// functions to fuzz and with what options, in one declarative file the
// CLI can run end to end.
package suite

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/funfuzz/internal/fuzzer"
)

// Suite is the top-level campaign file.
type Suite struct {
	// Targets lists the functions to fuzz, in order.
	Targets []Target `yaml:"targets"`
}

// Target configures one fuzz run. Zero-valued limit fields fall back to
// the engine defaults.
type Target struct {
	// Module and Function name the registered target.
	Module   string `yaml:"module"`
	Function string `yaml:"function"`

	// MaxTests bounds non-duplicate generated inputs.
	MaxTests int `yaml:"maxTests,omitempty"`

	// MaxDupeInputs bounds consecutive duplicate inputs.
	MaxDupeInputs int `yaml:"maxDupeInputs,omitempty"`

	// MaxFailures stops the run early after this many failures (0 = unlimited).
	MaxFailures int `yaml:"maxFailures,omitempty"`

	// SuiteTimeoutMs bounds the whole run's wall time, in milliseconds.
	SuiteTimeoutMs int `yaml:"suiteTimeoutMs,omitempty"`

	// FnTimeoutMs bounds each sandboxed call, in milliseconds.
	FnTimeoutMs int `yaml:"fnTimeoutMs,omitempty"`

	// OnlyFailures drops passing results from the stored set.
	OnlyFailures bool `yaml:"onlyFailures,omitempty"`

	// Oracle toggles. Implicit defaults to on; nil means "not set".
	UseImplicit *bool `yaml:"useImplicit,omitempty"`
	UseHuman    *bool `yaml:"useHuman,omitempty"`
	UseProperty *bool `yaml:"useProperty,omitempty"`

	// Seed makes the generated input sequence reproducible.
	Seed string `yaml:"seed,omitempty"`

	// Output, when set, receives the run's results as JSON.
	Output string `yaml:"output,omitempty"`

	// Overrides adjust argument constraints before the run.
	Overrides []Override `yaml:"overrides,omitempty"`
}

// Override tunes one argument's generation constraints. Unset fields keep
// the analyzer-provided constraint.
type Override struct {
	// Arg is the argument name the override applies to.
	Arg string `yaml:"arg"`

	// Min and Max replace the primary numeric interval bounds.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Integer switches numeric generation between integer and float mode.
	Integer *bool `yaml:"integer,omitempty"`

	// MinLen and MaxLen replace string or array length bounds.
	MinLen *int `yaml:"minLen,omitempty"`
	MaxLen *int `yaml:"maxLen,omitempty"`
}

// Load reads and validates a campaign file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite %s: %w", path, err)
	}
	if len(s.Targets) == 0 {
		return nil, fmt.Errorf("suite %s: no targets", path)
	}
	for i, t := range s.Targets {
		if t.Module == "" || t.Function == "" {
			return nil, fmt.Errorf("suite %s: target %d: module and function are required", path, i)
		}
	}
	return &s, nil
}

// Options maps the target onto engine options, filling unset fields from
// the defaults.
func (t *Target) Options() fuzzer.Options {
	opts := fuzzer.DefaultOptions()
	if t.MaxTests > 0 {
		opts.MaxTests = t.MaxTests
	}
	if t.MaxDupeInputs > 0 {
		opts.MaxDupeInputs = t.MaxDupeInputs
	}
	opts.MaxFailures = t.MaxFailures
	if t.SuiteTimeoutMs > 0 {
		opts.SuiteTimeout = time.Duration(t.SuiteTimeoutMs) * time.Millisecond
	}
	if t.FnTimeoutMs > 0 {
		opts.FnTimeout = time.Duration(t.FnTimeoutMs) * time.Millisecond
	}
	opts.OnlyFailures = t.OnlyFailures
	if t.UseImplicit != nil {
		opts.UseImplicit = *t.UseImplicit
	}
	if t.UseHuman != nil {
		opts.UseHuman = *t.UseHuman
	}
	if t.UseProperty != nil {
		opts.UseProperty = *t.UseProperty
	}
	opts.Seed = t.Seed
	opts.OutputPath = t.Output
	for _, ov := range t.Overrides {
		opts.Overrides = append(opts.Overrides, fuzzer.Override{
			Arg:     ov.Arg,
			Min:     ov.Min,
			Max:     ov.Max,
			Integer: ov.Integer,
			MinLen:  ov.MinLen,
			MaxLen:  ov.MaxLen,
		})
	}
	return opts
}
