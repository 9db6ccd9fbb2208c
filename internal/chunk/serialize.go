package chunk

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/loxlang/internal/value"
)

// cborEncMode uses canonical encoding so that dumping the same chunk twice
// produces byte-identical output, mirroring the dist package's encoder.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("chunk: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// constKind tags how a constantRecord's payload should be interpreted.
// LoxLang's compile-time constant pool only ever holds the cases below —
// nil, booleans, numbers, strings, and nested function constants (for
// OP_CLOSURE) — runtime-only objects (closures, classes, instances) never
// appear in a constant pool, so the wire format doesn't need to represent
// them.
type constKind uint8

const (
	constNil constKind = iota
	constBool
	constNumber
	constString
	constFunction
)

type constantRecord struct {
	Kind     constKind
	Bool     bool            `cbor:",omitempty"`
	Number   float64         `cbor:",omitempty"`
	Str      string          `cbor:",omitempty"`
	Function *functionRecord `cbor:",omitempty"`
}

// functionRecord mirrors enough of a compiled function to reconstruct it:
// the wire format doesn't need object.Function itself (that would pull
// the object package into chunk's dependency graph), just the fields a
// caller needs to rebuild one.
type functionRecord struct {
	Name         string
	Arity        int
	UpvalueCount int
	Chunk        *wireChunk
}

// wireChunk is the CBOR-friendly mirror of Chunk.
type wireChunk struct {
	Code          []byte
	Lines         []int
	Constants     []constantRecord
	UpvalueCounts map[int]int
}

// FunctionEncoder lets a caller (the object package, which knows the
// concrete Function/String types) teach the serializer how to flatten and
// rebuild function constants without chunk importing object.
type FunctionEncoder interface {
	EncodeFunction(v value.Value) (name string, arity, upvalueCount int, body *Chunk, ok bool)
	DecodeFunction(name string, arity, upvalueCount int, body *Chunk) value.Value
	EncodeString(v value.Value) (string, bool)
	DecodeString(s string) value.Value
}

// Marshal encodes c to CBOR using enc to flatten any Function/String
// constants in its pool.
func Marshal(c *Chunk, enc FunctionEncoder) ([]byte, error) {
	w, err := toWire(c, enc)
	if err != nil {
		return nil, fmt.Errorf("chunk: marshal: %w", err)
	}
	return cborEncMode.Marshal(w)
}

// Unmarshal decodes a chunk previously produced by Marshal.
func Unmarshal(data []byte, enc FunctionEncoder) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("chunk: unmarshal: %w", err)
	}
	return fromWire(&w, enc)
}

func toWire(c *Chunk, enc FunctionEncoder) (*wireChunk, error) {
	w := &wireChunk{
		Code:          c.Code,
		Lines:         c.Lines,
		UpvalueCounts: c.UpvalueCounts,
		Constants:     make([]constantRecord, len(c.Constants)),
	}
	for i, v := range c.Constants {
		rec, err := encodeConstant(v, enc)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		w.Constants[i] = rec
	}
	return w, nil
}

func fromWire(w *wireChunk, enc FunctionEncoder) (*Chunk, error) {
	c := &Chunk{
		Code:          w.Code,
		Lines:         w.Lines,
		UpvalueCounts: w.UpvalueCounts,
		Constants:     make([]value.Value, len(w.Constants)),
	}
	for i, rec := range w.Constants {
		v, err := decodeConstant(rec, enc)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		c.Constants[i] = v
	}
	return c, nil
}

func encodeConstant(v value.Value, enc FunctionEncoder) (constantRecord, error) {
	if v.IsNil() {
		return constantRecord{Kind: constNil}, nil
	}
	if v.IsBool() {
		return constantRecord{Kind: constBool, Bool: v.AsBool()}, nil
	}
	if v.IsNumber() {
		return constantRecord{Kind: constNumber, Number: v.AsNumber()}, nil
	}
	if s, ok := enc.EncodeString(v); ok {
		return constantRecord{Kind: constString, Str: s}, nil
	}
	if name, arity, upvalues, body, ok := enc.EncodeFunction(v); ok {
		bodyWire, err := toWire(body, enc)
		if err != nil {
			return constantRecord{}, err
		}
		return constantRecord{Kind: constFunction, Function: &functionRecord{
			Name: name, Arity: arity, UpvalueCount: upvalues, Chunk: bodyWire,
		}}, nil
	}
	return constantRecord{}, fmt.Errorf("value of kind %v is not a valid compile-time constant", v.Kind())
}

func decodeConstant(rec constantRecord, enc FunctionEncoder) (value.Value, error) {
	switch rec.Kind {
	case constNil:
		return value.Nil, nil
	case constBool:
		return value.Bool(rec.Bool), nil
	case constNumber:
		return value.Number(rec.Number), nil
	case constString:
		return enc.DecodeString(rec.Str), nil
	case constFunction:
		body, err := fromWire(rec.Function.Chunk, enc)
		if err != nil {
			return value.Nil, err
		}
		return enc.DecodeFunction(rec.Function.Name, rec.Function.Arity, rec.Function.UpvalueCount, body), nil
	default:
		return value.Nil, fmt.Errorf("unknown constant kind %d", rec.Kind)
	}
}
