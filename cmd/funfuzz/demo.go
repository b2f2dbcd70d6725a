package main

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/funvibe/funfuzz/internal/argdef"
	"github.com/funvibe/funfuzz/internal/modules"
	"github.com/funvibe/funfuzz/internal/value"
)

var demoModules = []string{"demo"}

// registerDemo installs a small target module so the binary is usable
// standalone. Some of these functions are deliberately buggy; the point of
// the demo is to watch the oracles catch them.
func registerDemo(reg *modules.Registry) {
	m := modules.NewModule("demo")

	m.AddFunction(&modules.FunctionDef{
		Name: "add",
		Args: []*argdef.ArgumentDef{
			argdef.NewNumber("a", 0, 0, 10, true),
			argdef.NewNumber("b", 1, 0, 10, true),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			a := args[0].(*value.Number).Val
			b := args[1].(*value.Number).Val
			return &value.Number{Val: a + b}
		},
	})

	// div panics on a zero divisor and leaks ±Inf near it.
	m.AddFunction(&modules.FunctionDef{
		Name: "div",
		Args: []*argdef.ArgumentDef{
			argdef.NewNumber("a", 0, -10, 10, true),
			argdef.NewNumber("b", 1, -10, 10, true),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			a := args[0].(*value.Number).Val
			b := args[1].(*value.Number).Val
			if b == 0 {
				panic("division by zero")
			}
			return &value.Number{Val: a / b}
		},
	})

	// sqrt returns NaN for negative inputs, which the implicit oracle flags.
	m.AddFunction(&modules.FunctionDef{
		Name: "sqrt",
		Args: []*argdef.ArgumentDef{
			argdef.NewNumber("x", 0, -100, 100, false),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			return &value.Number{Val: math.Sqrt(args[0].(*value.Number).Val)}
		},
	})

	// spin busy-loops on true, demonstrating the timeout abort.
	m.AddFunction(&modules.FunctionDef{
		Name: "spin",
		Args: []*argdef.ArgumentDef{
			argdef.NewBoolean("hang", 0),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			if args[0].(*value.Boolean).Val {
				for ctx.Err() == nil {
				}
			}
			return &value.Boolean{Val: true}
		},
	})

	m.AddFunction(&modules.FunctionDef{
		Name: "repeat",
		Args: []*argdef.ArgumentDef{
			argdef.NewString("s", 0, 0, 8),
			argdef.NewNumber("n", 1, 0, 5, true),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			s := args[0].(*value.Str).Val
			n := int(args[1].(*value.Number).Val)
			return &value.Str{Val: strings.Repeat(s, n)}
		},
	})

	// sortNumbers has a seeded bug: it drops one element of longer
	// inputs, which the length-preservation validator catches.
	m.AddFunction(&modules.FunctionDef{
		Name: "sortNumbers",
		Args: []*argdef.ArgumentDef{
			argdef.NewNumber("xs", 0, -50, 50, true).WithDimension(1, 0, 8),
		},
		Fn: func(ctx context.Context, args []value.Value) value.Value {
			in := args[0].(*value.List).Elements
			out := make([]float64, 0, len(in))
			for _, el := range in {
				out = append(out, el.(*value.Number).Val)
			}
			sort.Float64s(out)
			if len(out) > 6 {
				out = out[:len(out)-1]
			}
			elems := make([]value.Value, len(out))
			for i, f := range out {
				elems[i] = &value.Number{Val: f}
			}
			return &value.List{Elements: elems}
		},
	})

	m.AddValidator("sortNumbersKeepsLength", func(ctx context.Context, args []value.Value) value.Value {
		rec := args[0].(*value.Record)
		if rec.Get("exception").(*value.Boolean).Val || rec.Get("timeout").(*value.Boolean).Val {
			return &value.Boolean{Val: false}
		}
		in := rec.Get("in").(*value.List).Elements[0].(*value.List)
		out, ok := rec.Get("out").(*value.List)
		if !ok {
			return &value.Boolean{Val: false}
		}
		return &value.Boolean{Val: len(in.Elements) == len(out.Elements)}
	})

	m.AddValidator("sortNumbersIsSorted", func(ctx context.Context, args []value.Value) value.Value {
		rec := args[0].(*value.Record)
		out, ok := rec.Get("out").(*value.List)
		if !ok {
			return &value.Boolean{Val: false}
		}
		for i := 1; i < len(out.Elements); i++ {
			prev := out.Elements[i-1].(*value.Number).Val
			cur := out.Elements[i].(*value.Number).Val
			if prev > cur {
				return &value.Boolean{Val: false}
			}
		}
		return &value.Boolean{Val: true}
	})

	reg.Register(m)
}
