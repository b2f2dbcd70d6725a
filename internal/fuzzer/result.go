package fuzzer

import (
	"time"

	"github.com/funvibe/funfuzz/internal/oracle"
	"github.com/funvibe/funfuzz/internal/value"
)

// IoElement is one named input slot, or the single output slot.
type IoElement struct {
	Name   string
	Offset int
	Value  value.Value
}

// PinnedTest is a previously saved input replayed before random
// generation, optionally carrying a human-provided expectation.
type PinnedTest struct {
	Input  []IoElement
	Output []IoElement
	Pinned bool

	// HasExpected marks a human expectation for this input: either a
	// specific outcome kind or a concrete expected output.
	HasExpected     bool
	ExpectTimeout   bool
	ExpectException bool
	Expected        []IoElement
}

// TestResult is the fully populated record of one executed test. It is
// immutable once pushed to the aggregate.
type TestResult struct {
	Input  []IoElement
	Output []IoElement
	Pinned bool

	Exception        bool
	ExceptionMessage string
	Timeout          bool

	// ValidatorException marks a validator that itself threw; the test is
	// then categorized as a validator bug, not a verdict on the function.
	ValidatorException bool

	PassedImplicit   bool
	PassedHuman      oracle.Verdict
	PassedValidator  oracle.Verdict
	PassedValidators []bool

	Expected []IoElement
	Elapsed  time.Duration
	Category oracle.Category
}

// StopReason is the terminal condition that ended a run.
type StopReason string

const (
	MAXTIME     StopReason = "MAXTIME"
	MAXTESTS    StopReason = "MAXTESTS"
	MAXFAILURES StopReason = "MAXFAILURES"
	MAXDUPES    StopReason = "MAXDUPES"
)

// Results is the aggregate of one fuzz run.
type Results struct {
	RunID    string
	Module   string
	Function string
	Seed     string

	StopReason      StopReason
	Elapsed         time.Duration
	InputsGenerated int
	DupesGenerated  int
	InputsSaved     int

	Results []TestResult
}

// FailureCount counts stored results that did not classify as ok.
func (r *Results) FailureCount() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Category != oracle.OK {
			n++
		}
	}
	return n
}
