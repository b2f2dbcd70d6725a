// Package oracle judges test outcomes. Three independently toggleable
// verdict sources — implicit, human, property — each yield pass, fail or
// none ("did not judge"), and a precedence table merges them into one
// result category.
package oracle

import (
	"github.com/funvibe/funfuzz/internal/sandbox"
	"github.com/funvibe/funfuzz/internal/value"
)

// Verdict is one oracle's judgment of a single test.
type Verdict string

const (
	PASS Verdict = "PASS"
	FAIL Verdict = "FAIL"
	NONE Verdict = "NONE" // oracle disabled or not applicable
)

// FromBool converts a boolean judgment into a verdict.
func FromBool(ok bool) Verdict {
	if ok {
		return PASS
	}
	return FAIL
}

// Category is the merged classification of one test.
type Category string

const (
	OK        Category = "ok"
	BAD_VALUE Category = "badValue"
	EXCEPTION Category = "exception"
	TIMEOUT   Category = "timeout"
	DISAGREE  Category = "disagree"
	FAILURE   Category = "failure" // a validator itself threw
)

// Implicit is the heuristic oracle: a call that timed out or threw fails;
// a void function must return nothing; any other output fails if it
// recursively contains nil, NaN or ±Inf.
func Implicit(out sandbox.Outcome, void bool) bool {
	if out.Timeout || out.Exception {
		return false
	}
	if void {
		return out.Value == nil || out.Value.Kind() == value.NIL_VAL
	}
	return !value.Anomalous(out.Value)
}

// Expected is a human-pinned expectation for one input: either a specific
// outcome kind, or a concrete output value.
type Expected struct {
	Timeout   bool
	Exception bool
	Value     value.Value
	HasValue  bool
}

// Human compares the actual outcome against a pinned expectation. An
// expected timeout matches only an actual timeout, an expected exception
// only an actual exception; otherwise the output must be structurally
// equal to the expected value. A nil expectation yields NONE.
func Human(exp *Expected, out sandbox.Outcome) Verdict {
	if exp == nil {
		return NONE
	}
	switch {
	case exp.Timeout:
		return FromBool(out.Timeout)
	case exp.Exception:
		return FromBool(out.Exception)
	case out.Timeout || out.Exception:
		return FAIL
	default:
		actual := out.Value
		if actual == nil {
			actual = &value.Nil{}
		}
		expected := exp.Value
		if !exp.HasValue || expected == nil {
			expected = &value.Nil{}
		}
		return FromBool(value.Equal(expected, actual))
	}
}

// Property folds per-validator verdicts into one: a logical AND across all
// validators, NONE when no validator judged.
func Property(votes []bool) Verdict {
	if len(votes) == 0 {
		return NONE
	}
	for _, v := range votes {
		if !v {
			return FAIL
		}
	}
	return PASS
}

// Outcome carries the classification inputs for one test.
type Outcome struct {
	Exception bool
	Timeout   bool
	Implicit  Verdict
	Human     Verdict
	Property  Verdict
}

// byKind maps a failed test to the category its raw outcome dictates.
func byKind(o Outcome) Category {
	switch {
	case o.Exception:
		return EXCEPTION
	case o.Timeout:
		return TIMEOUT
	default:
		return BAD_VALUE
	}
}

// Classify merges the oracle verdicts by precedence: an explicit human
// expectation dominates, then the property verdict, then the implicit
// heuristic. A human and property oracle contradicting each other is its
// own category, since one of the two judgments must be wrong.
func Classify(o Outcome) Category {
	switch o.Human {
	case PASS:
		if o.Property == FAIL {
			return DISAGREE
		}
		return OK
	case FAIL:
		if o.Property == PASS {
			return DISAGREE
		}
		return byKind(o)
	default:
		switch o.Property {
		case PASS:
			return OK
		case FAIL:
			return BAD_VALUE
		default:
			if o.Implicit == FAIL {
				return byKind(o)
			}
			// Implicit passed, or no oracle judged at all: report ok.
			return OK
		}
	}
}
