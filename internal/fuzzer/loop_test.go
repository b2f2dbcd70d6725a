package fuzzer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/funvibe/funfuzz/internal/argdef"
	"github.com/funvibe/funfuzz/internal/modules"
	"github.com/funvibe/funfuzz/internal/oracle"
	"github.com/funvibe/funfuzz/internal/value"
)

func num(f float64) *value.Number { return &value.Number{Val: f} }

// testRegistry builds a registry with the targets the loop tests exercise.
// calls, when non-nil, is incremented on every invocation of "add".
func testRegistry(calls *int) *modules.Registry {
	m := modules.NewModule("demo")

	m.AddFunction(&modules.FunctionDef{
		Name: "add",
		Args: []*argdef.ArgumentDef{
			argdef.NewNumber("a", 0, 0, 10, true),
			argdef.NewNumber("b", 1, 0, 10, true),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			if calls != nil {
				*calls++
			}
			return num(args[0].(*value.Number).Val + args[1].(*value.Number).Val)
		},
	})

	m.AddFunction(&modules.FunctionDef{
		Name: "not",
		Args: []*argdef.ArgumentDef{argdef.NewBoolean("p", 0)},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			return &value.Boolean{Val: !args[0].(*value.Boolean).Val}
		},
	})

	m.AddFunction(&modules.FunctionDef{
		Name: "boom",
		Args: []*argdef.ArgumentDef{argdef.NewNumber("x", 0, 0, 1000, true)},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			panic("boom")
		},
	})

	m.AddFunction(&modules.FunctionDef{
		Name: "hang",
		Args: []*argdef.ArgumentDef{argdef.NewNumber("x", 0, 0, 1000, true)},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			<-ctx.Done()
			return &value.Nil{}
		},
	})

	m.AddFunction(&modules.FunctionDef{
		Name: "answer",
		Args: nil,
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			return num(42)
		},
	})

	m.AddValidator("addMatchesSum", func(ctx context.Context, args []value.Value) value.Value {
		rec := args[0].(*value.Record)
		in := rec.Get("in").(*value.List).Elements
		out, ok := rec.Get("out").(*value.Number)
		if !ok {
			return &value.Boolean{Val: false}
		}
		want := in[0].(*value.Number).Val + in[1].(*value.Number).Val
		return &value.Boolean{Val: out.Val == want}
	})

	reg := modules.NewRegistry()
	reg.Register(m)
	return reg
}

func opts(mutate func(*Options)) Options {
	o := DefaultOptions()
	o.Seed = "x"
	if mutate != nil {
		mutate(&o)
	}
	return o
}

func mustSetup(t *testing.T, o Options, reg *modules.Registry, fn string) *Env {
	t.Helper()
	env, err := Setup(o, reg, "demo", fn)
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	return env
}

func mustFuzz(t *testing.T, env *Env, pinned []PinnedTest) *Results {
	t.Helper()
	res, err := Fuzz(context.Background(), env, pinned)
	if err != nil {
		t.Fatalf("Fuzz() error: %v", err)
	}
	return res
}

func TestFuzz_EndToEndAdd(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) { o.MaxTests = 50 }), reg, "add")
	res := mustFuzz(t, env, nil)

	if res.StopReason != MAXTESTS {
		t.Errorf("stop reason = %s, want MAXTESTS", res.StopReason)
	}
	if got := res.InputsGenerated - res.DupesGenerated; got != 50 {
		t.Errorf("executed %d tests, want 50", got)
	}
	// Sums of non-negative integers never trip the implicit oracle.
	for i := range res.Results {
		if res.Results[i].Category != oracle.OK {
			t.Fatalf("result %d category = %s, want ok", i, res.Results[i].Category)
		}
	}
	if res.InputsSaved != len(res.Results) {
		t.Errorf("InputsSaved = %d, stored %d", res.InputsSaved, len(res.Results))
	}
	if res.RunID == "" {
		t.Error("run id not assigned")
	}
}

func TestFuzz_ExhaustedSpaceStopsOnDupes(t *testing.T) {
	reg := testRegistry(nil)
	// Two possible inputs but five requested tests: the dupe guard must
	// fire before MAXTESTS ever can.
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 5
		o.MaxDupeInputs = 100
	}), reg, "not")
	res := mustFuzz(t, env, nil)

	if res.StopReason != MAXDUPES {
		t.Errorf("stop reason = %s, want MAXDUPES", res.StopReason)
	}
	if len(res.Results) != 2 {
		t.Errorf("stored %d results, want 2 (input space has 2 points)", len(res.Results))
	}
	if res.DupesGenerated < 100 {
		t.Errorf("DupesGenerated = %d, want >= 100", res.DupesGenerated)
	}
}

func TestFuzz_ZeroArgFunctionNeverDeduped(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) { o.MaxTests = 7 }), reg, "answer")
	res := mustFuzz(t, env, nil)

	if res.StopReason != MAXTESTS {
		t.Errorf("stop reason = %s, want MAXTESTS", res.StopReason)
	}
	if res.DupesGenerated != 0 {
		t.Errorf("DupesGenerated = %d, want 0", res.DupesGenerated)
	}
	if len(res.Results) != 7 {
		t.Errorf("stored %d results, want 7", len(res.Results))
	}
}

func TestFuzz_MaxFailures(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) { o.MaxFailures = 3 }), reg, "boom")
	res := mustFuzz(t, env, nil)

	if res.StopReason != MAXFAILURES {
		t.Errorf("stop reason = %s, want MAXFAILURES", res.StopReason)
	}
	if len(res.Results) != 3 {
		t.Errorf("stored %d results, want 3", len(res.Results))
	}
	for i := range res.Results {
		tr := &res.Results[i]
		if tr.Category != oracle.EXCEPTION || !tr.Exception || tr.ExceptionMessage != "boom" {
			t.Errorf("result %d: %+v", i, tr)
		}
	}
}

func TestFuzz_TimeoutCategory(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 2
		o.FnTimeout = 10 * time.Millisecond
		o.SuiteTimeout = 5 * time.Second
	}), reg, "hang")
	res := mustFuzz(t, env, nil)

	if len(res.Results) == 0 {
		t.Fatal("no results stored")
	}
	for i := range res.Results {
		tr := &res.Results[i]
		if tr.Category != oracle.TIMEOUT || !tr.Timeout {
			t.Errorf("result %d: category %s timeout=%v", i, tr.Category, tr.Timeout)
		}
		if tr.Output != nil {
			t.Errorf("result %d: timed-out call has output", i)
		}
	}
}

func TestFuzz_SuiteTimeout(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.SuiteTimeout = 50 * time.Millisecond
		o.FnTimeout = 30 * time.Millisecond
		o.MaxTests = 1000000
	}), reg, "hang")
	res := mustFuzz(t, env, nil)

	if res.StopReason != MAXTIME {
		t.Errorf("stop reason = %s, want MAXTIME", res.StopReason)
	}
}

func TestFuzz_DeterministicSequence(t *testing.T) {
	run := func() []string {
		reg := testRegistry(nil)
		env := mustSetup(t, opts(func(o *Options) { o.MaxTests = 30 }), reg, "add")
		res := mustFuzz(t, env, nil)
		keys := make([]string, len(res.Results))
		for i := range res.Results {
			keys[i] = value.Canonical(inputValues(res.Results[i].Input))
		}
		return keys
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("input %d diverged: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestFuzz_PinnedDuplicateNotInvoked(t *testing.T) {
	calls := 0
	reg := testRegistry(&calls)
	env := mustSetup(t, opts(func(o *Options) { o.MaxTests = 1 }), reg, "add")

	pin := PinnedTest{
		Pinned: true,
		Input: []IoElement{
			{Name: "a", Offset: 0, Value: num(3)},
			{Name: "b", Offset: 1, Value: num(4)},
		},
	}
	res := mustFuzz(t, env, []PinnedTest{pin, pin})

	pinnedStored := 0
	for i := range res.Results {
		if res.Results[i].Pinned {
			pinnedStored++
		}
	}
	if pinnedStored != 1 {
		t.Errorf("stored %d pinned results, want 1", pinnedStored)
	}
	// One pinned execution plus one generated test.
	if calls != 2 {
		t.Errorf("target invoked %d times, want 2 (duplicate pinned must not run)", calls)
	}
}

func TestFuzz_PinnedNotCountedTowardMaxTests(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) { o.MaxTests = 2 }), reg, "add")

	pinned := []PinnedTest{
		{Pinned: true, Input: []IoElement{{Name: "a", Value: num(1)}, {Name: "b", Value: num(1)}}},
		{Pinned: true, Input: []IoElement{{Name: "a", Value: num(2)}, {Name: "b", Value: num(2)}}},
		{Pinned: true, Input: []IoElement{{Name: "a", Value: num(3)}, {Name: "b", Value: num(3)}}},
	}
	res := mustFuzz(t, env, pinned)

	if res.StopReason != MAXTESTS {
		t.Errorf("stop reason = %s, want MAXTESTS", res.StopReason)
	}
	if got := res.InputsGenerated - res.DupesGenerated; got != 2 {
		t.Errorf("generated %d counted tests, want 2", got)
	}
	if len(res.Results) != 5 {
		t.Errorf("stored %d results, want 5 (3 pinned + 2 generated)", len(res.Results))
	}
}

func TestFuzz_HumanOracle(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 1
		o.UseHuman = true
	}), reg, "add")

	pinned := []PinnedTest{
		{
			Pinned:      true,
			Input:       []IoElement{{Name: "a", Value: num(2)}, {Name: "b", Value: num(2)}},
			HasExpected: true,
			Expected:    []IoElement{{Name: "output", Value: num(4)}},
		},
		{
			Pinned:      true,
			Input:       []IoElement{{Name: "a", Value: num(2)}, {Name: "b", Value: num(3)}},
			HasExpected: true,
			Expected:    []IoElement{{Name: "output", Value: num(99)}},
		},
	}
	res := mustFuzz(t, env, pinned)

	if res.Results[0].PassedHuman != oracle.PASS || res.Results[0].Category != oracle.OK {
		t.Errorf("matching expectation: human=%s category=%s",
			res.Results[0].PassedHuman, res.Results[0].Category)
	}
	if res.Results[1].PassedHuman != oracle.FAIL || res.Results[1].Category != oracle.BAD_VALUE {
		t.Errorf("failed expectation: human=%s category=%s",
			res.Results[1].PassedHuman, res.Results[1].Category)
	}
}

func TestFuzz_HumanAndPropertyDisagree(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 1
		o.UseHuman = true
		o.UseProperty = true
	}), reg, "add")

	// The validator confirms 2+2=4 but the human pinned 5: a disagreement,
	// not a plain failure.
	pinned := []PinnedTest{{
		Pinned:      true,
		Input:       []IoElement{{Name: "a", Value: num(2)}, {Name: "b", Value: num(2)}},
		HasExpected: true,
		Expected:    []IoElement{{Name: "output", Value: num(5)}},
	}}
	res := mustFuzz(t, env, pinned)

	tr := &res.Results[0]
	if tr.PassedHuman != oracle.FAIL || tr.PassedValidator != oracle.PASS {
		t.Fatalf("verdicts: human=%s property=%s", tr.PassedHuman, tr.PassedValidator)
	}
	if tr.Category != oracle.DISAGREE {
		t.Errorf("category = %s, want disagree", tr.Category)
	}
}

func TestFuzz_ValidatorVector(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 5
		o.UseProperty = true
	}), reg, "add")
	res := mustFuzz(t, env, nil)

	for i := range res.Results {
		tr := &res.Results[i]
		if tr.PassedValidator != oracle.PASS {
			t.Errorf("result %d: validator verdict %s", i, tr.PassedValidator)
		}
		if len(tr.PassedValidators) != 1 || !tr.PassedValidators[0] {
			t.Errorf("result %d: vector %v", i, tr.PassedValidators)
		}
	}
}

func TestFuzz_ValidatorExceptionIsFailure(t *testing.T) {
	m := modules.NewModule("demo")
	m.AddFunction(&modules.FunctionDef{
		Name: "id",
		Args: []*argdef.ArgumentDef{argdef.NewNumber("x", 0, 0, 100, true)},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			return args[0]
		},
	})
	m.AddValidator("idBroken", func(ctx context.Context, args []value.Value) value.Value {
		panic("bug in validator")
	})
	reg := modules.NewRegistry()
	reg.Register(m)

	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 3
		o.UseProperty = true
	}), reg, "id")
	res := mustFuzz(t, env, nil)

	for i := range res.Results {
		tr := &res.Results[i]
		if !tr.ValidatorException {
			t.Errorf("result %d: validator exception not flagged", i)
		}
		if tr.Category != oracle.FAILURE {
			t.Errorf("result %d: category = %s, want failure", i, tr.Category)
		}
	}
}

func TestFuzz_OnlyFailures(t *testing.T) {
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 25
		o.OnlyFailures = true
	}), reg, "add")
	res := mustFuzz(t, env, nil)

	if len(res.Results) != 0 {
		t.Errorf("stored %d passing results with OnlyFailures set", len(res.Results))
	}
	if got := res.InputsGenerated - res.DupesGenerated; got != 25 {
		t.Errorf("executed %d tests, want 25", got)
	}
}

func TestFuzz_OverridesApplied(t *testing.T) {
	reg := testRegistry(nil)
	min, max := 100.0, 100.0
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 1
		o.Overrides = []Override{{Arg: "a", Min: &min, Max: &max}}
	}), reg, "add")
	res := mustFuzz(t, env, nil)

	got := res.Results[0].Input[0].Value.(*value.Number).Val
	if got != 100 {
		t.Errorf("override ignored: a = %v, want 100", got)
	}
}

func TestFuzz_WritesJSONExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	reg := testRegistry(nil)
	env := mustSetup(t, opts(func(o *Options) {
		o.MaxTests = 5
		o.OutputPath = path
	}), reg, "add")
	res := mustFuzz(t, env, nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded["stopReason"] != string(MAXTESTS) {
		t.Errorf("stopReason = %v", decoded["stopReason"])
	}
	if decoded["runId"] != res.RunID {
		t.Errorf("runId = %v, want %s", decoded["runId"], res.RunID)
	}
}

func TestSetup_FailsFast(t *testing.T) {
	reg := testRegistry(nil)

	bad := []Options{
		opts(func(o *Options) { o.MaxTests = 0 }),
		opts(func(o *Options) { o.MaxDupeInputs = 0 }),
		opts(func(o *Options) { o.MaxFailures = -1 }),
		opts(func(o *Options) { o.SuiteTimeout = 0 }),
		opts(func(o *Options) { o.FnTimeout = -time.Second }),
	}
	for i, o := range bad {
		if _, err := Setup(o, reg, "demo", "add"); err == nil {
			t.Errorf("options %d: Setup accepted invalid options", i)
		} else {
			var ce *argdef.ConfigurationError
			if !errors.As(err, &ce) {
				t.Errorf("options %d: error is %T, want *ConfigurationError", i, err)
			}
		}
	}

	if _, err := Setup(opts(nil), reg, "demo", "nope"); err == nil {
		t.Error("Setup resolved a missing function")
	}
}
