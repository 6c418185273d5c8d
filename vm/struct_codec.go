package vm

import (
	"encoding/binary"
	"math"
)

// StructField is one fixed-width field of a struct template.
type StructField struct {
	Size   int
	Signed bool
	Float  bool
	Big    bool
}

// structCodes maps template codes to fields. Codes without an L or B
// suffix use the native order, which is little-endian on every host.
var structCodes = map[string]StructField{
	"U8":   {Size: 1},
	"U16":  {Size: 2},
	"UL16": {Size: 2},
	"UB16": {Size: 2, Big: true},
	"U32":  {Size: 4},
	"UL32": {Size: 4},
	"UB32": {Size: 4, Big: true},
	"S8":   {Size: 1, Signed: true},
	"S16":  {Size: 2, Signed: true},
	"SL16": {Size: 2, Signed: true},
	"SB16": {Size: 2, Signed: true, Big: true},
	"S32":  {Size: 4, Signed: true},
	"SL32": {Size: 4, Signed: true},
	"SB32": {Size: 4, Signed: true, Big: true},
	"F32":  {Size: 4, Float: true},
	"FL32": {Size: 4, Float: true},
	"FB32": {Size: 4, Float: true, Big: true},
	"F64":  {Size: 8, Float: true},
	"FL64": {Size: 8, Float: true},
	"FB64": {Size: 8, Float: true, Big: true},
}

// StructIsLE reports the native byte order used by un-suffixed codes.
func StructIsLE() bool { return true }

// structTemplate parses a template list of field codes.
func (ctx *Context) structTemplate(tpl Value) ([]StructField, int, bool) {
	if !tpl.IsList() {
		return nil, 0, false
	}
	codes := ctx.heap.List(tpl).Vals
	if len(codes) == 0 {
		return nil, 0, false
	}
	fields := make([]StructField, len(codes))
	size := 0
	for i, c := range codes {
		if !c.IsStr() {
			return nil, 0, false
		}
		f, ok := structCodes[ctx.heap.Str(c).String()]
		if !ok {
			return nil, 0, false
		}
		fields[i] = f
		size += f.Size
	}
	return fields, size, true
}

// StructSize returns the encoded byte size of a template, or nil when the
// template is invalid.
func (ctx *Context) StructSize(tpl Value) Value {
	_, size, ok := ctx.structTemplate(tpl)
	if !ok {
		return Nil
	}
	return Num(float64(size))
}

// saturate truncates f toward zero and clamps it to [lo, hi]. NaN is 0.
func saturate(f, lo, hi float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (f StructField) order() byteOrder {
	if f.Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (f StructField) encode(dst []byte, x float64) []byte {
	bo := f.order()
	switch {
	case f.Float && f.Size == 4:
		return bo.AppendUint32(dst, math.Float32bits(float32(x)))
	case f.Float:
		return bo.AppendUint64(dst, math.Float64bits(x))
	case f.Signed:
		switch f.Size {
		case 1:
			return append(dst, byte(int8(saturate(x, math.MinInt8, math.MaxInt8))))
		case 2:
			return bo.AppendUint16(dst, uint16(int16(saturate(x, math.MinInt16, math.MaxInt16))))
		}
		return bo.AppendUint32(dst, uint32(int32(saturate(x, math.MinInt32, math.MaxInt32))))
	}
	switch f.Size {
	case 1:
		return append(dst, byte(saturate(x, 0, math.MaxUint8)))
	case 2:
		return bo.AppendUint16(dst, uint16(saturate(x, 0, math.MaxUint16)))
	}
	return bo.AppendUint32(dst, uint32(saturate(x, 0, math.MaxUint32)))
}

func (f StructField) decode(src []byte) float64 {
	bo := f.order()
	switch {
	case f.Float && f.Size == 4:
		return float64(math.Float32frombits(bo.Uint32(src)))
	case f.Float:
		return math.Float64frombits(bo.Uint64(src))
	case f.Signed:
		switch f.Size {
		case 1:
			return float64(int8(src[0]))
		case 2:
			return float64(int16(bo.Uint16(src)))
		}
		return float64(int32(bo.Uint32(src)))
	}
	switch f.Size {
	case 1:
		return float64(src[0])
	case 2:
		return float64(bo.Uint16(src))
	}
	return float64(bo.Uint32(src))
}

// StructStr packs a list of numbers using the template. The list length
// must be a positive multiple of the template length. Out-of-range integers
// saturate.
func (ctx *Context) StructStr(ls, tpl Value) Value {
	fields, size, ok := ctx.structTemplate(tpl)
	if !ok {
		return ctx.Abortf("Invalid struct template")
	}
	if !ls.IsList() {
		return ctx.Abortf("Expecting list of numbers")
	}
	vals := ctx.heap.List(ls).Vals
	if len(vals) == 0 || len(vals)%len(fields) != 0 {
		return ctx.Abortf("Expecting list whose size is a multiple of the template size")
	}
	out := make([]byte, 0, size*(len(vals)/len(fields)))
	for i, v := range vals {
		if !v.IsNum() {
			return ctx.Abortf("Expecting list of numbers")
		}
		out = fields[i%len(fields)].encode(out, v.Float())
	}
	return ctx.NewStrGive(out)
}

// StructList unpacks a string using the template. The byte length must be
// a positive multiple of the struct size.
func (ctx *Context) StructList(s, tpl Value) Value {
	fields, size, ok := ctx.structTemplate(tpl)
	if !ok {
		return ctx.Abortf("Invalid struct template")
	}
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	b := ctx.heap.Str(s).Bytes
	if len(b) == 0 || len(b)%size != 0 {
		return ctx.Abortf("Expecting string whose size is a multiple of the struct size")
	}
	vals := make([]Value, 0, len(b)/size*len(fields))
	for len(b) > 0 {
		for _, f := range fields {
			vals = append(vals, Num(f.decode(b)))
			b = b[f.Size:]
		}
	}
	return ctx.NewListGive(vals)
}

func init() {
	registerLib(map[string]LibFunc{
		"struct.size": func(ctx *Context, args []Value) Value { return ctx.StructSize(arg(args, 0)) },
		"struct.str":  func(ctx *Context, args []Value) Value { return ctx.StructStr(arg(args, 0), arg(args, 1)) },
		"struct.list": func(ctx *Context, args []Value) Value { return ctx.StructList(arg(args, 0), arg(args, 1)) },
		"struct.isLE": func(ctx *Context, args []Value) Value { return Bool(StructIsLE()) },
	})
}
