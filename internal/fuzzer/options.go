package fuzzer

import (
	"time"

	"github.com/funvibe/funfuzz/internal/argdef"
)

// Options configure one fuzz run. Invalid options fail Setup before any
// generation begins; this is the only case where the engine raises instead
// of recovering.
type Options struct {
	// MaxTests stops the run once this many non-duplicate inputs have
	// been generated. Pinned tests do not count toward it.
	MaxTests int

	// MaxDupeInputs stops the run after this many consecutive duplicate
	// inputs. It is the guard against small input spaces: generation on
	// an exhausted space cannot loop forever.
	MaxDupeInputs int

	// MaxFailures stops the run after this many failing tests. 0 means
	// unlimited.
	MaxFailures int

	// SuiteTimeout bounds the whole run's wall time.
	SuiteTimeout time.Duration

	// FnTimeout bounds each sandboxed call, for the function under test
	// and each validator alike.
	FnTimeout time.Duration

	// OnlyFailures drops passing results from the stored set.
	OnlyFailures bool

	// Oracle toggles.
	UseImplicit bool
	UseHuman    bool
	UseProperty bool

	// Seed is free-form text seeding the input generator. Two runs with
	// the same seed and options generate the same input sequence.
	Seed string

	// OutputPath, when set, receives the aggregate results as JSON after
	// the loop terminates. A write failure is reported to the caller but
	// does not invalidate the computed results.
	OutputPath string

	// Overrides mutate argument constraints before the run.
	Overrides []Override
}

// Override adjusts one argument's generation constraints by name. Nil
// fields leave the analyzer-provided constraint untouched.
type Override struct {
	Arg     string
	Min     *float64
	Max     *float64
	Integer *bool
	MinLen  *int
	MaxLen  *int
}

// DefaultOptions are the engine defaults: implicit oracle on, everything
// else opt-in.
func DefaultOptions() Options {
	return Options{
		MaxTests:      1000,
		MaxDupeInputs: 1000,
		SuiteTimeout:  3 * time.Second,
		FnTimeout:     100 * time.Millisecond,
		UseImplicit:   true,
	}
}

func (o *Options) validate() error {
	if o.MaxTests <= 0 {
		return &argdef.ConfigurationError{Msg: "maxTests must be positive"}
	}
	if o.MaxDupeInputs <= 0 {
		return &argdef.ConfigurationError{Msg: "maxDupeInputs must be positive"}
	}
	if o.MaxFailures < 0 {
		return &argdef.ConfigurationError{Msg: "maxFailures must not be negative"}
	}
	if o.SuiteTimeout <= 0 {
		return &argdef.ConfigurationError{Msg: "suiteTimeout must be positive"}
	}
	if o.FnTimeout <= 0 {
		return &argdef.ConfigurationError{Msg: "fnTimeout must be positive"}
	}
	return nil
}

// apply mutates def according to the override.
func (ov *Override) apply(def *argdef.ArgumentDef) {
	switch def.TypeTag {
	case argdef.NUMBER_ARG:
		var min, max float64
		if len(def.Numbers) > 0 {
			min, max = def.Numbers[0].Min, def.Numbers[0].Max
		}
		if ov.Min != nil {
			min = *ov.Min
		}
		if ov.Max != nil {
			max = *ov.Max
		}
		def.SetNumberInterval(min, max)
		if ov.Integer != nil {
			def.Options.NumInteger = *ov.Integer
		}
	case argdef.STRING_ARG:
		min, max := def.Options.StrLength.Min, def.Options.StrLength.Max
		if ov.MinLen != nil {
			min = *ov.MinLen
		}
		if ov.MaxLen != nil {
			max = *ov.MaxLen
		}
		def.SetStrLength(min, max)
	}
	if def.Dimension > 0 && (ov.MinLen != nil || ov.MaxLen != nil) {
		for i, iv := range def.Options.DimLength {
			if ov.MinLen != nil {
				iv.Min = *ov.MinLen
			}
			if ov.MaxLen != nil {
				iv.Max = *ov.MaxLen
			}
			def.Options.DimLength[i] = iv
		}
	}
}
