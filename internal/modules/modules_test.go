package modules

import (
	"context"
	"errors"
	"testing"

	"github.com/funvibe/funfuzz/internal/argdef"
	"github.com/funvibe/funfuzz/internal/sandbox"
	"github.com/funvibe/funfuzz/internal/value"
)

func identity(ctx context.Context, args []value.Value) value.Value {
	return args[0]
}

func newTestModule() *Module {
	m := NewModule("math")
	m.AddFunction(&FunctionDef{
		Name: "abs",
		Args: []*argdef.ArgumentDef{argdef.NewNumber("x", 0, -10, 10, true)},
		Fn:   identity,
	})
	m.AddFunction(&FunctionDef{
		Name: "absolute",
		Args: []*argdef.ArgumentDef{argdef.NewNumber("x", 0, -10, 10, true)},
		Fn:   identity,
	})
	m.AddValidator("absNonNegative", identity)
	m.AddValidator("absoluteNonNegative", identity)
	m.AddValidator("unrelatedCheck", identity)
	return m
}

func TestLoad_ResolvesFunctionAndValidators(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newTestModule())

	def, validators, err := reg.Load("math", "abs")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if def.Name != "abs" || def.Module != "math" {
		t.Errorf("resolved %s.%s", def.Module, def.Name)
	}

	// Validators attach by name prefix: absNonNegative yes, absoluteNonNegative
	// also starts with "abs" and attaches too, unrelatedCheck does not.
	if len(validators) != 2 {
		t.Fatalf("got %d validators, want 2", len(validators))
	}
	for _, v := range validators {
		if v.Name == "unrelatedCheck" {
			t.Error("unrelated validator attached")
		}
	}
}

func TestLoad_FreshHandlePerCall(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newTestModule())

	first, _, _ := reg.Load("math", "abs")
	first.Args[0].SetNumberInterval(-1000, 1000)

	second, _, _ := reg.Load("math", "abs")
	if second.Args[0].Numbers[0].Max != 10 {
		t.Errorf("override leaked into registry: %+v", second.Args[0].Numbers[0])
	}
}

func TestLoad_Errors(t *testing.T) {
	reg := NewRegistry()
	m := newTestModule()
	m.AddFunction(&FunctionDef{Name: "broken", Fn: nil})
	reg.Register(m)

	if _, _, err := reg.Load("nope", "abs"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("unknown module: error = %v", err)
	}
	if _, _, err := reg.Load("math", "nope"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("unknown function: error = %v", err)
	}
	if _, _, err := reg.Load("math", "broken"); !errors.Is(err, sandbox.ErrNotCallable) {
		t.Errorf("nil callable: error = %v", err)
	}
}

func TestFunctions_Sorted(t *testing.T) {
	m := newTestModule()
	names := m.Functions()
	if len(names) != 2 || names[0] != "abs" || names[1] != "absolute" {
		t.Errorf("Functions() = %v", names)
	}
}
