package value

import (
	"math"
	"strconv"
	"strings"
)

type Kind string

const (
	NUMBER_VAL  = "NUMBER"
	STRING_VAL  = "STRING"
	BOOLEAN_VAL = "BOOLEAN"
	LIST_VAL    = "LIST"
	RECORD_VAL  = "RECORD"
	NIL_VAL     = "NIL"
)

// Value is the runtime representation of one dynamically-typed input or
// output. Inspect returns a canonical serialization: two values are equal
// exactly when their Inspect strings are equal, which is what the fuzz
// loop's dedup set relies on.
type Value interface {
	Kind() Kind
	Inspect() string
}

type Number struct {
	Val float64
}

func (n *Number) Kind() Kind { return NUMBER_VAL }
func (n *Number) Inspect() string {
	if n.Val == math.Trunc(n.Val) && !math.IsInf(n.Val, 0) && !math.IsNaN(n.Val) {
		return strconv.FormatInt(int64(n.Val), 10)
	}
	return strconv.FormatFloat(n.Val, 'g', -1, 64)
}

type Str struct {
	Val string
}

func (s *Str) Kind() Kind      { return STRING_VAL }
func (s *Str) Inspect() string { return strconv.Quote(s.Val) }

type Boolean struct {
	Val bool
}

func (b *Boolean) Kind() Kind { return BOOLEAN_VAL }
func (b *Boolean) Inspect() string {
	if b.Val {
		return "true"
	}
	return "false"
}

type List struct {
	Elements []Value
}

func (l *List) Kind() Kind { return LIST_VAL }
func (l *List) Inspect() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, el := range l.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(el.Inspect())
	}
	sb.WriteString("]")
	return sb.String()
}

// Field is one named slot of a Record. Fields keep declaration order so
// that Inspect stays canonical.
type Field struct {
	Key string
	Val Value
}

type Record struct {
	Fields []Field
}

func (r *Record) Kind() Kind { return RECORD_VAL }
func (r *Record) Inspect() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range r.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Key)
		sb.WriteString(": ")
		sb.WriteString(f.Val.Inspect())
	}
	sb.WriteString("}")
	return sb.String()
}

// Get returns the field value for key, or nil if absent.
func (r *Record) Get(key string) Value {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Val
		}
	}
	return nil
}

// Nil is the absent value: a missing return, an omitted optional argument,
// or an explicit null produced by the function under test.
type Nil struct{}

func (n *Nil) Kind() Kind      { return NIL_VAL }
func (n *Nil) Inspect() string { return "nil" }
