package value

import (
	"math"
	"strings"
)

// DeepCopy returns a structurally identical value sharing no mutable state
// with v. The fuzz loop copies every generated input before handing it to
// the sandbox so that in-place mutation by the function under test cannot
// corrupt the recorded input.
func DeepCopy(v Value) Value {
	switch v := v.(type) {
	case *Number:
		return &Number{Val: v.Val}
	case *Str:
		return &Str{Val: v.Val}
	case *Boolean:
		return &Boolean{Val: v.Val}
	case *Nil:
		return &Nil{}
	case *List:
		elems := make([]Value, len(v.Elements))
		for i, el := range v.Elements {
			elems[i] = DeepCopy(el)
		}
		return &List{Elements: elems}
	case *Record:
		fields := make([]Field, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = Field{Key: f.Key, Val: DeepCopy(f.Val)}
		}
		return &Record{Fields: fields}
	default:
		return v
	}
}

// Equal reports structural equality.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case *Number:
		bn := b.(*Number)
		if math.IsNaN(a.Val) && math.IsNaN(bn.Val) {
			return true
		}
		return a.Val == bn.Val
	case *Str:
		return a.Val == b.(*Str).Val
	case *Boolean:
		return a.Val == b.(*Boolean).Val
	case *Nil:
		return true
	case *List:
		bl := b.(*List)
		if len(a.Elements) != len(bl.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], bl.Elements[i]) {
				return false
			}
		}
		return true
	case *Record:
		br := b.(*Record)
		if len(a.Fields) != len(br.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Key != br.Fields[i].Key {
				return false
			}
			if !Equal(a.Fields[i].Val, br.Fields[i].Val) {
				return false
			}
		}
		return true
	}
	return false
}

// Anomalous reports whether v recursively contains nil, NaN or ±Inf —
// the outputs the implicit oracle flags as suspect. Lists are scanned
// element-wise and records value-wise.
func Anomalous(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *Nil:
		return true
	case *Number:
		return math.IsNaN(v.Val) || math.IsInf(v.Val, 0)
	case *List:
		for _, el := range v.Elements {
			if Anomalous(el) {
				return true
			}
		}
		return false
	case *Record:
		for _, f := range v.Fields {
			if Anomalous(f.Val) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Canonical serializes an ordered list of values into one dedup key.
func Canonical(vals []Value) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteString("|")
		}
		if v == nil {
			sb.WriteString("nil")
			continue
		}
		sb.WriteString(v.Inspect())
	}
	return sb.String()
}

// ToGo converts a value into plain Go data for JSON export.
func ToGo(v Value) any {
	switch v := v.(type) {
	case *Number:
		return v.Val
	case *Str:
		return v.Val
	case *Boolean:
		return v.Val
	case *Nil, nil:
		return nil
	case *List:
		out := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			out[i] = ToGo(el)
		}
		return out
	case *Record:
		out := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Key] = ToGo(f.Val)
		}
		return out
	default:
		return v.Inspect()
	}
}
