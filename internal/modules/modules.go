// Package modules is the registry boundary between the engine and the
// signature analyzer: target modules register their functions (signature
// plus callable) and validators, and the fuzzer resolves a fresh handle
// per run through Load.
package modules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/funfuzz/internal/argdef"
	"github.com/funvibe/funfuzz/internal/sandbox"
)

var (
	ErrModuleNotFound   = errors.New("module not found")
	ErrFunctionNotFound = errors.New("function not found")
)

// FunctionDef is one registered function under test: its resolved
// callable plus the argument shapes the generator works from.
type FunctionDef struct {
	Module string
	Name   string

	// Void marks a function with no return value; the implicit oracle
	// fails any non-nil output of a void function.
	Void bool

	Args []*argdef.ArgumentDef
	Fn   sandbox.Callable
}

// ValidatorDef is a user-supplied boolean property function. Validators
// attach to a function under test by naming convention: the validator
// name starts with the function's name.
type ValidatorDef struct {
	Name string
	Fn   sandbox.Callable
}

// Module groups the functions and validators of one target source module.
type Module struct {
	Name       string
	funcs      map[string]*FunctionDef
	validators []*ValidatorDef
}

func NewModule(name string) *Module {
	return &Module{Name: name, funcs: make(map[string]*FunctionDef)}
}

// AddFunction registers a function definition under its name.
func (m *Module) AddFunction(def *FunctionDef) {
	def.Module = m.Name
	m.funcs[def.Name] = def
}

// AddValidator registers a property function.
func (m *Module) AddValidator(name string, fn sandbox.Callable) {
	m.validators = append(m.validators, &ValidatorDef{Name: name, Fn: fn})
}

// Functions lists registered function names in sorted order.
func (m *Module) Functions() []string {
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry holds all registered target modules.
type Registry struct {
	modules map[string]*Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

func (r *Registry) Register(m *Module) {
	r.modules[m.Name] = m
}

func (r *Registry) Module(name string) (*Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return m, nil
}

// Load resolves a function and its validators. Every call returns a fresh
// handle with cloned argument definitions, so per-run override application
// never leaks into the registry and each fuzz invocation picks up the
// module as currently registered.
func (r *Registry) Load(module, function string) (*FunctionDef, []*ValidatorDef, error) {
	m, err := r.Module(module)
	if err != nil {
		return nil, nil, err
	}
	def, ok := m.funcs[function]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrFunctionNotFound, module, function)
	}
	if def.Fn == nil {
		return nil, nil, fmt.Errorf("%s.%s: %w", module, function, sandbox.ErrNotCallable)
	}

	fresh := &FunctionDef{
		Module: def.Module,
		Name:   def.Name,
		Void:   def.Void,
		Fn:     def.Fn,
		Args:   make([]*argdef.ArgumentDef, len(def.Args)),
	}
	for i, a := range def.Args {
		fresh.Args[i] = a.Clone()
	}

	var validators []*ValidatorDef
	for _, v := range m.validators {
		if v.Name != def.Name && strings.HasPrefix(v.Name, def.Name) {
			validators = append(validators, &ValidatorDef{Name: v.Name, Fn: v.Fn})
		}
	}
	return fresh, validators, nil
}
