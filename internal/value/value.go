// Package value defines LoxLang's runtime value representation: the tagged
// Value union used by the bytecode VM's stack, constant pools and tables,
// and the Obj interface every heap-allocated type implements.
//
// A Value is deliberately a plain Go struct rather than the reference
// implementation's NaN-boxed uint64 — boxing a pointer into a float's bit
// pattern works in C because the collector knows to unbox it before
// following it, but it hides the pointer from Go's own collector entirely.
// Every Obj stays a real, GC-visible Go pointer.
package value

import "fmt"

// Kind discriminates the four cases a Value can hold.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a small, copyable tagged union: nil, a bool, a float64, or a
// handle to a heap Obj. It is passed by value throughout the VM's stack,
// constant pools and tables.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	obj     Obj
}

// Nil is the LoxLang nil value.
var Nil = Value{kind: KindNil}

// Bool wraps a Go bool as a Value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number wraps a float64 as a Value. LoxLang has exactly one numeric type.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// FromObj wraps a heap object as a Value.
func FromObj(o Obj) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNil() bool   { return v.kind == KindNil }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool does not check the kind: callers must check IsBool first, exactly
// as the reference implementation's AS_BOOL macro trusts its caller. For a
// non-bool it returns false.
func (v Value) AsBool() bool { return v.boolean }

// AsNumber does not check the kind; for a non-number it returns 0.
func (v Value) AsNumber() float64 { return v.number }

// AsObj does not check the kind; for a non-object it returns nil.
func (v Value) AsObj() Obj { return v.obj }

// ObjKindIs reports whether v is an object of the given kind.
func (v Value) ObjKindIs(k ObjKind) bool {
	return v.kind == KindObject && v.obj != nil && v.obj.ObjKind() == k
}

// IsString reports whether v holds a LoxLang string.
func (v Value) IsString() bool { return v.ObjKindIs(ObjStringKind) }

// IsFalsey implements LoxLang's truthiness rule: nil and false are falsey,
// everything else — including 0 and the empty string — is truthy.
func (v Value) IsFalsey() bool {
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return !v.boolean
	default:
		return false
	}
}

// Equal implements LoxLang's == operator. Numbers and bools compare by
// value; objects compare by reference identity, which is sufficient for
// strings too because the intern table guarantees equal content shares one
// handle (see Table.FindString).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindObject:
		return v.obj == other.obj
	default:
		return false
	}
}

// String renders v the way `print` does.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.number)
	case KindObject:
		if v.obj == nil {
			return "nil"
		}
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
