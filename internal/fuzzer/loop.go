// Package fuzzer orchestrates the generation–execution–classification
// loop: drain pinned tests, generate fresh inputs, suppress duplicates,
// invoke the sandbox, apply oracles, and stop on the first satisfied
// stop condition.
package fuzzer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/funfuzz/internal/gen"
	"github.com/funvibe/funfuzz/internal/oracle"
	"github.com/funvibe/funfuzz/internal/sandbox"
	"github.com/funvibe/funfuzz/internal/value"
)

// runState is the mutable per-run state, owned exclusively by Fuzz.
type runState struct {
	seen         map[string]struct{}
	currentDupes int
	totalDupes   int
	failures     int
	started      time.Time
}

// Fuzz executes one run against the environment. Pinned tests are drained
// first, in insertion order, without counting toward MaxTests. The run is
// strictly sequential: one candidate is generated, invoked and classified
// before the next begins.
//
// Function-under-test exceptions and timeouts never abort the run; they
// are folded into each test's category. The returned error is non-nil only
// for fatal conditions (unresolvable callable) or a failed results export,
// and in the export case the results are still returned intact.
func Fuzz(ctx context.Context, env *Env, pinned []PinnedTest) (*Results, error) {
	opts := env.Options
	res := &Results{
		RunID:    uuid.NewString(),
		Module:   env.Function.Module,
		Function: env.Function.Name,
		Seed:     opts.Seed,
	}
	st := &runState{
		seen:    make(map[string]struct{}),
		started: time.Now(),
	}
	g := gen.New(opts.Seed)
	sb := sandbox.New(opts.FnTimeout)

	// Seeding: replay pinned tests. Duplicate detection happens before
	// invocation, so a pinned input repeated in the pool runs only once.
	for i := range pinned {
		p := &pinned[i]
		if len(p.Input) > 0 && st.dedup(inputValues(p.Input)) {
			continue
		}
		if err := runOne(ctx, env, sb, st, res, p.Input, p); err != nil {
			return res, err
		}
	}

	for {
		if reason := st.stop(ctx, &opts, res); reason != "" {
			res.StopReason = reason
			break
		}

		input, err := generateInput(g, env)
		if err != nil {
			return res, err
		}
		res.InputsGenerated++

		// A function with no arguments has no input space to exhaust and
		// is never deduplicated.
		if len(input) > 0 && st.dedup(inputValues(input)) {
			st.currentDupes++
			st.totalDupes++
			res.DupesGenerated++
			continue
		}
		st.currentDupes = 0

		if err := runOne(ctx, env, sb, st, res, input, nil); err != nil {
			return res, err
		}
	}

	res.Elapsed = time.Since(st.started)
	res.InputsSaved = len(res.Results)

	if opts.OutputPath != "" {
		if err := res.WriteJSON(opts.OutputPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

// dedup records the canonical form of the input, reporting whether it was
// already seen in this run.
func (st *runState) dedup(vals []value.Value) bool {
	key := value.Canonical(vals)
	if _, ok := st.seen[key]; ok {
		return true
	}
	st.seen[key] = struct{}{}
	return false
}

// stop evaluates the stop conditions in fixed priority order; the first
// match wins.
func (st *runState) stop(ctx context.Context, opts *Options, res *Results) StopReason {
	if ctx.Err() != nil || time.Since(st.started) >= opts.SuiteTimeout {
		return MAXTIME
	}
	if res.InputsGenerated-st.totalDupes >= opts.MaxTests {
		return MAXTESTS
	}
	if opts.MaxFailures != 0 && st.failures >= opts.MaxFailures {
		return MAXFAILURES
	}
	if st.currentDupes >= opts.MaxDupeInputs {
		return MAXDUPES
	}
	return ""
}

func generateInput(g *gen.Generator, env *Env) ([]IoElement, error) {
	args := env.Function.Args
	input := make([]IoElement, len(args))
	for i, arg := range args {
		v, err := g.Value(arg)
		if err != nil {
			return nil, err
		}
		input[i] = IoElement{Name: arg.Name, Offset: arg.Offset, Value: v}
	}
	return input, nil
}

func inputValues(input []IoElement) []value.Value {
	vals := make([]value.Value, len(input))
	for i := range input {
		vals[i] = input[i].Value
	}
	return vals
}

// runOne invokes the target on one input and classifies the outcome.
// pinned is nil for generated inputs.
func runOne(ctx context.Context, env *Env, sb *sandbox.Sandbox, st *runState, res *Results, input []IoElement, pinned *PinnedTest) error {
	opts := &env.Options

	// The sandbox receives deep copies: the function under test may
	// mutate its arguments in place, and the recorded input must stay
	// the generator's value.
	callArgs := make([]value.Value, len(input))
	for i := range input {
		callArgs[i] = value.DeepCopy(input[i].Value)
	}

	out, err := sb.Run(ctx, env.Function.Fn, callArgs)
	if err != nil {
		return err
	}

	tr := TestResult{
		Input:            input,
		Exception:        out.Exception,
		ExceptionMessage: out.Message,
		Timeout:          out.Timeout,
		Elapsed:          out.Elapsed,
		PassedHuman:      oracle.NONE,
		PassedValidator:  oracle.NONE,
	}
	if pinned != nil {
		tr.Pinned = pinned.Pinned
		tr.Expected = pinned.Expected
	}
	if !out.Timeout && !out.Exception {
		outVal := out.Value
		if outVal == nil {
			outVal = &value.Nil{}
		}
		tr.Output = []IoElement{{Name: "output", Offset: 0, Value: outVal}}
	}

	implicitVerdict := oracle.NONE
	tr.PassedImplicit = oracle.Implicit(out, env.Function.Void)
	if opts.UseImplicit {
		implicitVerdict = oracle.FromBool(tr.PassedImplicit)
	}

	if opts.UseHuman && pinned != nil && pinned.HasExpected {
		tr.PassedHuman = oracle.Human(pinnedExpectation(pinned), out)
	}

	if opts.UseProperty && len(env.Validators) > 0 {
		votes, validatorErr := runValidators(ctx, env, sb, inputValues(input), out)
		tr.PassedValidators = votes
		if validatorErr {
			tr.ValidatorException = true
		} else {
			tr.PassedValidator = oracle.Property(votes)
		}
	}

	if tr.ValidatorException {
		tr.Category = oracle.FAILURE
	} else {
		tr.Category = oracle.Classify(oracle.Outcome{
			Exception: out.Exception,
			Timeout:   out.Timeout,
			Implicit:  implicitVerdict,
			Human:     tr.PassedHuman,
			Property:  tr.PassedValidator,
		})
	}

	if tr.Category != oracle.OK {
		st.failures++
	}
	if !opts.OnlyFailures || tr.Category != oracle.OK {
		res.Results = append(res.Results, tr)
	}
	return nil
}

func pinnedExpectation(p *PinnedTest) *oracle.Expected {
	exp := &oracle.Expected{
		Timeout:   p.ExpectTimeout,
		Exception: p.ExpectException,
	}
	if len(p.Expected) > 0 {
		exp.Value = p.Expected[0].Value
		exp.HasValue = true
	}
	return exp
}

// outSentinel is what validators see as `out` when the call produced no
// value to judge.
const outSentinel = "timeout or exception"

// runValidators applies each property function to the test's input/output
// pair. A validator that throws, overruns its budget, or returns a
// non-boolean is a bug in the validator itself; the test is then flagged
// terminally instead of judged.
func runValidators(ctx context.Context, env *Env, sb *sandbox.Sandbox, in []value.Value, out sandbox.Outcome) ([]bool, bool) {
	outVal := out.Value
	if out.Timeout || out.Exception || outVal == nil {
		outVal = &value.Str{Val: outSentinel}
	}
	arg := &value.Record{Fields: []value.Field{
		{Key: "in", Val: &value.List{Elements: in}},
		{Key: "out", Val: outVal},
		{Key: "exception", Val: &value.Boolean{Val: out.Exception}},
		{Key: "timeout", Val: &value.Boolean{Val: out.Timeout}},
	}}

	votes := make([]bool, 0, len(env.Validators))
	for _, v := range env.Validators {
		vo, err := sb.Run(ctx, v.Fn, []value.Value{value.DeepCopy(arg)})
		if err != nil || vo.Exception || vo.Timeout {
			return votes, true
		}
		b, ok := vo.Value.(*value.Boolean)
		if !ok {
			return votes, true
		}
		votes = append(votes, b.Val)
	}
	return votes, false
}
