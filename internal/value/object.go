package value

import "fmt"

// ObjKind discriminates the heap object variants. Concrete object types
// (functions, closures, classes, ...) live in package object, which this
// package never imports — Obj is the only contact point, exactly the way
// chunk.go only ever needs to store a Value, never a concrete Function.
type ObjKind uint8

const (
	ObjStringKind ObjKind = iota
	ObjFunctionKind
	ObjNativeKind
	ObjClosureKind
	ObjUpvalueKind
	ObjClassKind
	ObjInstanceKind
	ObjBoundMethodKind
)

func (k ObjKind) String() string {
	switch k {
	case ObjStringKind:
		return "string"
	case ObjFunctionKind:
		return "function"
	case ObjNativeKind:
		return "native"
	case ObjClosureKind:
		return "closure"
	case ObjUpvalueKind:
		return "upvalue"
	case ObjClassKind:
		return "class"
	case ObjInstanceKind:
		return "instance"
	case ObjBoundMethodKind:
		return "bound method"
	default:
		return fmt.Sprintf("ObjKind(%d)", k)
	}
}

// Header is embedded in every heap object. It carries the collector's mark
// bit and the intrusive next-pointer that threads every live allocation
// into the VM's single "all objects" list, exactly as the reference
// collector's sweep phase needs to walk every object it has ever allocated,
// not just the ones currently reachable.
type Header struct {
	Marked bool
	Next   Obj
}

// GCHeader returns the object's own header. Obj implementations embed
// Header and get this for free.
func (h *Header) GCHeader() *Header { return h }

// Obj is implemented by every heap-allocated LoxLang value.
type Obj interface {
	ObjKind() ObjKind
	GCHeader() *Header
	String() string
}

// String is an interned, immutable byte sequence. Because the intern table
// guarantees one allocation per distinct content, equality on strings can
// be pointer equality — see Value.Equal and Table.FindString.
type String struct {
	Header
	Chars string
	Hash  uint32
}

func (s *String) ObjKind() ObjKind  { return ObjStringKind }
func (s *String) GCHeader() *Header { return &s.Header }
func (s *String) String() string    { return s.Chars }

// HashString is FNV-1a over the raw bytes, matching the reference
// implementation's hashString exactly.
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
