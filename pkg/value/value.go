// Package value implements vesper's runtime value representation and the
// shared object heap: a tagged union of Nil/Bool/Number/Object values, plus
// an append-only heap of String objects with interning and a globals table.
//
// Value is a closed sum type, not an interface: new object kinds extend
// Object only, and runtime dispatch is by explicit switch on the kind tag
// (see SPEC_FULL.md §3, "Tagged values over inheritance").
package value

import "fmt"

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is a cheap-to-copy tagged union: Nil, Bool, Number (IEEE-754
// float64), or Object (a heap reference). Equality is by-variant: Nil==Nil,
// booleans by value, numbers by IEEE equality, objects by key identity.
// Heterogeneous equality across variants is not a Value-level operation —
// see the VM's EQUAL handling for the unsupported-operation rule.
type Value struct {
	kind Kind
	num  float64
	b    bool
	obj  ObjectKey
}

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number constructs a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Object constructs a value referencing a heap object.
func Object(key ObjectKey) Value { return Value{kind: KindObject, obj: key} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v holds Nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the payload of a Bool value. The caller must check Kind.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the payload of a Number value. The caller must check Kind.
func (v Value) AsNumber() float64 { return v.num }

// AsObject returns the payload of an Object value. The caller must check Kind.
func (v Value) AsObject() ObjectKey { return v.obj }

// Truthy implements vesper's falsey rule: Nil and Bool(false) are falsey,
// everything else (including Number(0) and the empty string) is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal reports whether v and other are equal under vesper's same-variant
// equality rule. It does not resolve string contents — for Object values it
// compares keys, which is correct because the heap interns all strings (two
// equal strings always share one key). Cross-variant pairs are not equal by
// this function; callers that must reject cross-variant comparisons
// entirely (per spec) should check Kind before calling Equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindObject:
		return v.obj == other.obj
	default:
		return false
	}
}

// Display renders v for PRINT output and error messages. String objects are
// resolved through heap.
func (v Value) Display(heap *Heap) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindObject:
		if heap == nil {
			return fmt.Sprintf("<object %v>", v.obj)
		}
		obj, err := heap.Get(v.obj)
		if err != nil {
			return fmt.Sprintf("<invalid object %v>", v.obj)
		}
		return obj.String
	default:
		return "<unknown>"
	}
}

func formatNumber(n float64) string {
	// %g gives the shortest form that round-trips, with no trailing ".0"
	// on integral values (42, not 42.0); large and small magnitudes use
	// exponent notation (1e+06, 1e-05).
	return fmt.Sprintf("%g", n)
}

// TypeName returns a short string describing v's variant, for error
// messages ("unsupported operation on number and string", etc).
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}
