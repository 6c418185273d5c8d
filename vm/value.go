package vm

import "math"

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindNum
	KindStr
	KindList
	KindAsync
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindAsync:
		return "async"
	}
	return "unknown"
}

// Value is an immutable sink datum.
//
// Strings and lists are handles: the payload holds the issuing heap's id in
// the high 32 bits and a table slot in the low 32 bits. Values are comparable
// with ==, which is identity for handles and bit equality for numbers.
type Value struct {
	kind Kind
	bits uint64
}

// NaN-boxing layout used at serialization boundaries.
const (
	QNaNBits    uint64 = 0x7FF8000000000000
	NilBits     uint64 = 0x7FF8000100000000
	AsyncBits   uint64 = 0x7FF8000200000000
	StrTagBits  uint64 = 0x7FF8000300000000
	ListTagBits uint64 = 0x7FF8000400000000
	TagMask     uint64 = 0xFFFFFFFF80000000
)

var (
	// Nil is the zero Value and the only falsy value.
	Nil = Value{}

	// Async is returned by a native to suspend the running program until
	// the embedder delivers a result with Context.AsyncResult.
	Async = Value{kind: KindAsync, bits: AsyncBits}
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Num creates a number. Every NaN is stored as the canonical quiet NaN.
func Num(f float64) Value {
	if f != f {
		return Value{kind: KindNum, bits: QNaNBits}
	}
	return Value{kind: KindNum, bits: math.Float64bits(f)}
}

// NaN returns the canonical NaN number.
func NaN() Value {
	return Value{kind: KindNum, bits: QNaNBits}
}

// Inf returns positive infinity.
func Inf() Value {
	return Num(math.Inf(1))
}

// Bool returns 1 for true and nil for false.
func Bool(b bool) Value {
	if b {
		return Num(1)
	}
	return Nil
}

func handleValue(kind Kind, heap, slot uint32) Value {
	return Value{kind: kind, bits: uint64(heap)<<32 | uint64(slot)}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool   { return v.kind == KindNil }
func (v Value) IsNum() bool   { return v.kind == KindNum }
func (v Value) IsStr() bool   { return v.kind == KindStr }
func (v Value) IsList() bool  { return v.kind == KindList }
func (v Value) IsAsync() bool { return v.kind == KindAsync }

// IsTrue reports whether v is truthy. Zero, NaN, empty strings and empty
// lists are all true.
func (v Value) IsTrue() bool { return v.kind != KindNil }

// IsFalse reports whether v is nil.
func (v Value) IsFalse() bool { return v.kind == KindNil }

// Float returns the number held by v. The result is only meaningful when
// IsNum reports true; other kinds yield NaN.
func (v Value) Float() float64 {
	if v.kind != KindNum {
		return math.NaN()
	}
	return math.Float64frombits(v.bits)
}

func (v Value) heapID() uint32 { return uint32(v.bits >> 32) }
func (v Value) slot() uint32   { return uint32(v.bits) }

// ---------------------------------------------------------------------------
// Boundary encoding
// ---------------------------------------------------------------------------

// Bits returns the 64-bit NaN-boxed form of v. Handles keep only their slot
// index; the heap id is supplied again by FromBits.
func (v Value) Bits() uint64 {
	switch v.kind {
	case KindNil:
		return NilBits
	case KindAsync:
		return AsyncBits
	case KindStr:
		return StrTagBits | uint64(v.slot()&^uint32(1<<31))
	case KindList:
		return ListTagBits | uint64(v.slot()&^uint32(1<<31))
	}
	return v.bits
}

// FromBits decodes a NaN-boxed pattern. Any pattern outside the reserved tag
// space is a double; NaNs are canonicalized. String and list patterns bind
// to heapID.
func FromBits(bits uint64, heapID uint32) Value {
	switch {
	case bits == NilBits:
		return Nil
	case bits == AsyncBits:
		return Async
	case bits&TagMask == StrTagBits:
		return handleValue(KindStr, heapID, uint32(bits&^TagMask))
	case bits&TagMask == ListTagBits:
		return handleValue(KindList, heapID, uint32(bits&^TagMask))
	}
	return Num(math.Float64frombits(bits))
}
