// Package gen produces concrete values from argument definitions.
//
// Generation is deterministic for a fixed seed: the generator consumes
// nothing but its RandomSource stream, so two generators built with the
// same seed emit the same value sequence for the same definitions.
package gen

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/funvibe/funfuzz/internal/argdef"
	"github.com/funvibe/funfuzz/internal/value"
)

// Alphabet is the fixed printable set generated strings draw from.
const Alphabet = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[]^_`abcdefghijklmnopqrstuvwxyz{|}~"

// Generator draws values for argument definitions from a random source.
type Generator struct {
	src RandomSource
}

// New seeds a PRNG-backed generator. The seed is free-form text; it is
// hashed so option files can carry human-readable seeds.
func New(seed string) *Generator {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return &Generator{src: &RandSource{rand.New(rand.NewSource(int64(h.Sum64())))}}
}

// NewFromData uses a byte slice as the randomness stream.
func NewFromData(data []byte) *Generator {
	return &Generator{src: &ByteSource{data: data}}
}

// NewFromSource wraps an arbitrary random source.
func NewFromSource(src RandomSource) *Generator {
	return &Generator{src: src}
}

// Value produces one value conforming to def. The definition must be
// normalized (min <= max on every interval); constructing a value for an
// unsupported type tag is a ConfigurationError, generation for valid
// definitions never fails.
func (g *Generator) Value(def *argdef.ArgumentDef) (value.Value, error) {
	return g.generate(def, 0)
}

// generate recurses per array dimension, outermost first. dim is the index
// into Options.DimLength; once it reaches def.Dimension the scalar (or
// object) itself is produced.
func (g *Generator) generate(def *argdef.ArgumentDef, dim int) (value.Value, error) {
	if dim < def.Dimension {
		bounds := def.Options.DimLength[dim]
		n := g.intBetween(bounds.Min, bounds.Max)
		elems := make([]value.Value, n)
		for i := 0; i < n; i++ {
			el, err := g.generate(def, dim+1)
			if err != nil {
				return nil, err
			}
			elems[i] = el
		}
		return &value.List{Elements: elems}, nil
	}

	switch def.TypeTag {
	case argdef.NUMBER_ARG:
		return g.number(def), nil
	case argdef.STRING_ARG:
		return g.str(def), nil
	case argdef.BOOLEAN_ARG:
		return g.boolean(def), nil
	case argdef.OBJECT_ARG:
		fields := make([]value.Field, len(def.Children))
		for i, child := range def.Children {
			v, err := g.generate(child, 0)
			if err != nil {
				return nil, err
			}
			fields[i] = value.Field{Key: child.Name, Val: v}
		}
		return &value.Record{Fields: fields}, nil
	default:
		return nil, &argdef.ConfigurationError{Msg: "no generator for type tag " + string(def.TypeTag)}
	}
}

func (g *Generator) number(def *argdef.ArgumentDef) value.Value {
	iv := def.Numbers[0]
	if def.Options.NumInteger {
		lo := int(math.Ceil(iv.Min))
		hi := int(math.Floor(iv.Max))
		if hi < lo {
			// Interval narrower than one integer step.
			hi = lo
		}
		return &value.Number{Val: float64(lo + g.src.Intn(hi-lo+1))}
	}
	return &value.Number{Val: iv.Min + g.src.Float64()*(iv.Max-iv.Min)}
}

func (g *Generator) str(def *argdef.ArgumentDef) value.Value {
	bounds := def.Options.StrLength
	n := g.intBetween(bounds.Min, bounds.Max)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = Alphabet[g.src.Intn(len(Alphabet))]
	}
	return &value.Str{Val: string(buf)}
}

func (g *Generator) boolean(def *argdef.ArgumentDef) value.Value {
	iv := def.Bools[0]
	if iv.Min == iv.Max {
		return &value.Boolean{Val: iv.Min}
	}
	return &value.Boolean{Val: g.src.Intn(2) == 0}
}

// intBetween draws uniformly from [min, max] inclusive, treating a
// reversed pair as the degenerate [min, min].
func (g *Generator) intBetween(min, max int) int {
	if max < min {
		max = min
	}
	return min + g.src.Intn(max-min+1)
}
