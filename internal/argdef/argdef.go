// Package argdef models the shape of one function argument: its scalar
// type, array nesting, optionality and the constraints the value generator
// honors. Definitions are built once by the signature analyzer, mutated by
// override application before a run, and read-only during generation.
package argdef

import "fmt"

type TypeTag string

const (
	NUMBER_ARG  = "NUMBER"
	STRING_ARG  = "STRING"
	BOOLEAN_ARG = "BOOLEAN"
	OBJECT_ARG  = "OBJECT"
)

// NumInterval is a closed range of candidate numeric values.
type NumInterval struct {
	Min float64
	Max float64
}

// BoolInterval constrains a boolean argument. {false,true} means both
// values are possible; {true,true} means true only.
type BoolInterval struct {
	Min bool
	Max bool
}

// LenInterval is a closed range of lengths (string length, array length).
type LenInterval struct {
	Min int
	Max int
}

// ArgOptions is the type-specific generation tuning of one argument.
type ArgOptions struct {
	// NumInteger makes numeric generation draw integers instead of floats.
	NumInteger bool

	// StrLength bounds generated string lengths.
	StrLength LenInterval

	// DimLength holds one length range per array dimension, outermost
	// first. Its length must equal the argument's Dimension.
	DimLength []LenInterval
}

// ArgumentDef describes one argument of the function under test.
type ArgumentDef struct {
	Name      string
	Offset    int
	TypeTag   TypeTag
	Dimension int
	Optional  bool

	// Children are the ordered members of an OBJECT_ARG.
	Children []*ArgumentDef

	// Numbers are the candidate value ranges of a NUMBER_ARG, the first
	// interval being the primary one. Normalize sorts reversed bounds.
	Numbers []NumInterval

	// Bools constrain a BOOLEAN_ARG the same way.
	Bools []BoolInterval

	Options ArgOptions
}

// ConfigurationError signals an invalid argument definition or generator
// configuration. It is raised before any generation begins; generation
// itself never fails for normalized constraints.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// NewNumber returns a number argument over a single interval.
func NewNumber(name string, offset int, min, max float64, integer bool) *ArgumentDef {
	d := &ArgumentDef{
		Name:    name,
		Offset:  offset,
		TypeTag: NUMBER_ARG,
		Numbers: []NumInterval{{Min: min, Max: max}},
	}
	d.Options.NumInteger = integer
	return d
}

// NewString returns a string argument with the given length bounds.
func NewString(name string, offset, minLen, maxLen int) *ArgumentDef {
	d := &ArgumentDef{
		Name:    name,
		Offset:  offset,
		TypeTag: STRING_ARG,
	}
	d.Options.StrLength = LenInterval{Min: minLen, Max: maxLen}
	return d
}

// NewBoolean returns a boolean argument allowing both values.
func NewBoolean(name string, offset int) *ArgumentDef {
	return &ArgumentDef{
		Name:    name,
		Offset:  offset,
		TypeTag: BOOLEAN_ARG,
		Bools:   []BoolInterval{{Min: false, Max: true}},
	}
}

// NewObject returns an object argument with the given ordered members.
func NewObject(name string, offset int, children ...*ArgumentDef) *ArgumentDef {
	return &ArgumentDef{
		Name:     name,
		Offset:   offset,
		TypeTag:  OBJECT_ARG,
		Children: children,
	}
}

// WithDimension turns the argument into an array of the given nesting
// depth, every dimension bounded by [minLen, maxLen].
func (d *ArgumentDef) WithDimension(depth, minLen, maxLen int) *ArgumentDef {
	d.Dimension = depth
	d.Options.DimLength = make([]LenInterval, depth)
	for i := range d.Options.DimLength {
		d.Options.DimLength[i] = LenInterval{Min: minLen, Max: maxLen}
	}
	return d
}

// SetNumberInterval replaces the primary numeric range. Reversed bounds
// are sorted here so the generator can assume min <= max.
func (d *ArgumentDef) SetNumberInterval(min, max float64) {
	if max < min {
		min, max = max, min
	}
	if len(d.Numbers) == 0 {
		d.Numbers = []NumInterval{{Min: min, Max: max}}
		return
	}
	d.Numbers[0] = NumInterval{Min: min, Max: max}
}

// SetStrLength replaces the string length bounds, sorting reversed bounds.
func (d *ArgumentDef) SetStrLength(min, max int) {
	if max < min {
		min, max = max, min
	}
	d.Options.StrLength = LenInterval{Min: min, Max: max}
}

// Normalize sorts reversed interval bounds in place, recursing into
// children. Callers may pass reversed bounds; after Normalize the
// invariant min <= max holds for every interval.
func (d *ArgumentDef) Normalize() {
	for i, iv := range d.Numbers {
		if iv.Max < iv.Min {
			d.Numbers[i] = NumInterval{Min: iv.Max, Max: iv.Min}
		}
	}
	if d.Options.StrLength.Max < d.Options.StrLength.Min {
		d.Options.StrLength.Max = d.Options.StrLength.Min
	}
	for i, iv := range d.Options.DimLength {
		if iv.Max < iv.Min {
			d.Options.DimLength[i] = LenInterval{Min: iv.Max, Max: iv.Min}
		}
	}
	for _, c := range d.Children {
		c.Normalize()
	}
}

// Validate checks the definition after normalization. It is the fail-fast
// gate before a run: nothing is generated from an invalid definition.
func (d *ArgumentDef) Validate() error {
	switch d.TypeTag {
	case NUMBER_ARG:
		if len(d.Numbers) == 0 {
			return configErrorf("argument %q: number without candidate interval", d.Name)
		}
	case STRING_ARG:
		if d.Options.StrLength.Min < 0 {
			return configErrorf("argument %q: negative string length bound", d.Name)
		}
	case BOOLEAN_ARG:
		if len(d.Bools) == 0 {
			return configErrorf("argument %q: boolean without candidate interval", d.Name)
		}
	case OBJECT_ARG:
		for _, c := range d.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	default:
		return configErrorf("argument %q: unsupported type tag %q", d.Name, d.TypeTag)
	}
	if d.Dimension < 0 {
		return configErrorf("argument %q: negative dimension", d.Name)
	}
	if d.Dimension > 0 {
		if len(d.Options.DimLength) != d.Dimension {
			return configErrorf("argument %q: %d dimensions but %d length ranges",
				d.Name, d.Dimension, len(d.Options.DimLength))
		}
		for i, iv := range d.Options.DimLength {
			if iv.Min < 0 {
				return configErrorf("argument %q: negative length bound for dimension %d", d.Name, i)
			}
		}
	}
	return nil
}

// Clone deep-copies the definition so override application for one run
// never leaks into the registry's master copy.
func (d *ArgumentDef) Clone() *ArgumentDef {
	cp := *d
	cp.Numbers = append([]NumInterval(nil), d.Numbers...)
	cp.Bools = append([]BoolInterval(nil), d.Bools...)
	cp.Options.DimLength = append([]LenInterval(nil), d.Options.DimLength...)
	if d.Children != nil {
		cp.Children = make([]*ArgumentDef, len(d.Children))
		for i, c := range d.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}
