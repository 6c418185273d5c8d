package vm

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/chazu/sink/pkg/bytecode"
)

// PickleFormat is what PickleValid detects.
type PickleFormat int

const (
	PickleInvalid PickleFormat = iota
	PickleJSON
	PickleBinary
)

// Binary pickle layout:
//
//	0x01
//	uvarint string count, then per string: uvarint length, bytes
//	uvarint list count, then per list: uvarint length, element refs
//	root ref
//
// Lists are numbered by identity, so shared and circular lists survive a
// round trip.
const pickleBinaryVersion = 0x01

const (
	refNil  = 0xF0
	refU8   = 0xF1
	refU16  = 0xF2
	refU32  = 0xF3
	refN8   = 0xF4
	refN16  = 0xF5
	refN32  = 0xF6
	refF64  = 0xF7
	refStr  = 0xF8
	refList = 0xF9
)

const errInvalidPickle = "Invalid pickle data"

// ---------------------------------------------------------------------------
// Binary encoding
// ---------------------------------------------------------------------------

type pickleEncoder struct {
	ctx     *Context
	strIdx  map[string]int
	strs    [][]byte
	listIdx map[uint32]int
	lists   []*ListObject
}

func (e *pickleEncoder) visit(v Value, queue []Value) []Value {
	switch v.kind {
	case KindStr:
		b := e.ctx.heap.Str(v).Bytes
		if _, ok := e.strIdx[string(b)]; !ok {
			e.strIdx[string(b)] = len(e.strs)
			e.strs = append(e.strs, b)
		}
	case KindList:
		if _, ok := e.listIdx[v.slot()]; !ok {
			e.listIdx[v.slot()] = len(e.lists)
			e.lists = append(e.lists, e.ctx.heap.List(v))
			queue = append(queue, v)
		}
	}
	return queue
}

func (e *pickleEncoder) ref(out []byte, v Value) []byte {
	switch v.kind {
	case KindNum:
		return appendNumRef(out, v.Float())
	case KindStr:
		out = append(out, refStr)
		return binary.AppendUvarint(out, uint64(e.strIdx[string(e.ctx.heap.Str(v).Bytes)]))
	case KindList:
		out = append(out, refList)
		return binary.AppendUvarint(out, uint64(e.listIdx[v.slot()]))
	}
	return append(out, refNil)
}

func appendNumRef(out []byte, f float64) []byte {
	integral := f == math.Trunc(f) && !math.IsInf(f, 0) && !(f == 0 && math.Signbit(f))
	if integral {
		a := math.Abs(f)
		tag := byte(refU8)
		if f < 0 {
			tag = refN8
		}
		switch {
		case a < 1<<8:
			return append(out, tag, byte(a))
		case a < 1<<16:
			return binary.LittleEndian.AppendUint16(append(out, tag+1), uint16(a))
		case a < 1<<32:
			return binary.LittleEndian.AppendUint32(append(out, tag+2), uint32(a))
		}
	}
	return binary.LittleEndian.AppendUint64(append(out, refF64), math.Float64bits(f))
}

// PickleBinaryBytes encodes v in the binary pickle form.
func (ctx *Context) PickleBinaryBytes(v Value) []byte {
	e := &pickleEncoder{
		ctx:     ctx,
		strIdx:  make(map[string]int),
		listIdx: make(map[uint32]int),
	}
	queue := e.visit(v, nil)
	for len(queue) > 0 {
		l := ctx.heap.List(queue[0])
		queue = queue[1:]
		for _, c := range l.Vals {
			queue = e.visit(c, queue)
		}
	}

	out := []byte{pickleBinaryVersion}
	out = binary.AppendUvarint(out, uint64(len(e.strs)))
	for _, s := range e.strs {
		out = binary.AppendUvarint(out, uint64(len(s)))
		out = append(out, s...)
	}
	out = binary.AppendUvarint(out, uint64(len(e.lists)))
	for _, l := range e.lists {
		out = binary.AppendUvarint(out, uint64(len(l.Vals)))
		for _, c := range l.Vals {
			out = e.ref(out, c)
		}
	}
	return e.ref(out, v)
}

// PickleBin returns the binary pickle of v as a string value.
func (ctx *Context) PickleBin(v Value) Value {
	return ctx.NewStrGive(ctx.PickleBinaryBytes(v))
}

// WritePickle streams the binary pickle of v to w, retrying short writes.
func (ctx *Context) WritePickle(w io.Writer, v Value) error {
	return bytecode.WriteFull(w, ctx.PickleBinaryBytes(v))
}

// ---------------------------------------------------------------------------
// Binary decoding
// ---------------------------------------------------------------------------

type pickleRef struct {
	tag byte
	num float64
	idx int
}

type pickleImage struct {
	strs  [][]byte
	lists [][]pickleRef
	root  pickleRef
}

type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) uvarint() (int, bool) {
	v, n := binary.Uvarint(r.b[r.pos:])
	if n <= 0 || v > uint64(len(r.b)) {
		return 0, false
	}
	r.pos += n
	return int(v), true
}

func (r *byteReader) take(n int) ([]byte, bool) {
	if n < 0 || len(r.b)-r.pos < n {
		return nil, false
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *byteReader) ref(nstr, nlist int) (pickleRef, bool) {
	tb, ok := r.take(1)
	if !ok {
		return pickleRef{}, false
	}
	tag := tb[0]
	switch tag {
	case refNil:
		return pickleRef{tag: tag}, true
	case refU8, refN8:
		b, ok := r.take(1)
		if !ok {
			return pickleRef{}, false
		}
		return pickleRef{tag: refF64, num: signed(tag, float64(b[0]))}, true
	case refU16, refN16:
		b, ok := r.take(2)
		if !ok {
			return pickleRef{}, false
		}
		return pickleRef{tag: refF64, num: signed(tag, float64(binary.LittleEndian.Uint16(b)))}, true
	case refU32, refN32:
		b, ok := r.take(4)
		if !ok {
			return pickleRef{}, false
		}
		return pickleRef{tag: refF64, num: signed(tag, float64(binary.LittleEndian.Uint32(b)))}, true
	case refF64:
		b, ok := r.take(8)
		if !ok {
			return pickleRef{}, false
		}
		return pickleRef{tag: refF64, num: math.Float64frombits(binary.LittleEndian.Uint64(b))}, true
	case refStr, refList:
		idx, ok := r.uvarint()
		if !ok {
			return pickleRef{}, false
		}
		if (tag == refStr && idx >= nstr) || (tag == refList && idx >= nlist) {
			return pickleRef{}, false
		}
		return pickleRef{tag: tag, idx: idx}, true
	}
	return pickleRef{}, false
}

func signed(tag byte, f float64) float64 {
	if tag >= refN8 {
		return -f
	}
	return f
}

// parsePickleBinary checks and decodes the binary form without touching the
// heap.
func parsePickleBinary(b []byte) (*pickleImage, bool) {
	r := &byteReader{b: b}
	if v, ok := r.take(1); !ok || v[0] != pickleBinaryVersion {
		return nil, false
	}
	nstr, ok := r.uvarint()
	if !ok {
		return nil, false
	}
	img := &pickleImage{strs: make([][]byte, nstr)}
	for i := range img.strs {
		n, ok := r.uvarint()
		if !ok {
			return nil, false
		}
		if img.strs[i], ok = r.take(n); !ok {
			return nil, false
		}
	}
	nlist, ok := r.uvarint()
	if !ok {
		return nil, false
	}
	img.lists = make([][]pickleRef, nlist)
	for i := range img.lists {
		n, ok := r.uvarint()
		if !ok {
			return nil, false
		}
		refs := make([]pickleRef, n)
		for j := range refs {
			if refs[j], ok = r.ref(nstr, nlist); !ok {
				return nil, false
			}
		}
		img.lists[i] = refs
	}
	if img.root, ok = r.ref(nstr, nlist); !ok {
		return nil, false
	}
	if r.pos != len(b) {
		return nil, false
	}
	return img, true
}

func (ctx *Context) buildPickle(img *pickleImage) Value {
	strs := make([]Value, len(img.strs))
	for i, s := range img.strs {
		strs[i] = ctx.NewStr(s)
	}
	lists := make([]Value, len(img.lists))
	for i, refs := range img.lists {
		lists[i] = ctx.NewListGive(make([]Value, 0, len(refs)))
	}
	resolve := func(r pickleRef) Value {
		switch r.tag {
		case refF64:
			return Num(r.num)
		case refStr:
			return strs[r.idx]
		case refList:
			return lists[r.idx]
		}
		return Nil
	}
	for i, refs := range img.lists {
		l := ctx.heap.List(lists[i])
		for _, r := range refs {
			l.Vals = append(l.Vals, resolve(r))
		}
	}
	return resolve(img.root)
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// PickleValid reports which pickle form s holds, without materializing it.
func (ctx *Context) PickleValid(s Value) PickleFormat {
	if !s.IsStr() {
		return PickleInvalid
	}
	b := ctx.heap.Str(s).Bytes
	if len(b) > 0 && b[0] == pickleBinaryVersion {
		if _, ok := parsePickleBinary(b); ok {
			return PickleBinary
		}
		return PickleInvalid
	}
	p := &jsonParser{b: b}
	if _, ok := p.document(); ok {
		return PickleJSON
	}
	return PickleInvalid
}

// PickleVal reconstructs a value from either pickle form. Malformed input
// aborts.
func (ctx *Context) PickleVal(s Value) Value {
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	b := ctx.heap.Str(s).Bytes
	if len(b) > 0 && b[0] == pickleBinaryVersion {
		img, ok := parsePickleBinary(b)
		if !ok {
			return ctx.Abortf(errInvalidPickle)
		}
		return ctx.buildPickle(img)
	}
	p := &jsonParser{b: b, ctx: ctx}
	v, ok := p.document()
	if !ok {
		return ctx.Abortf(errInvalidPickle)
	}
	return v
}

// ---------------------------------------------------------------------------
// Graph inspection
// ---------------------------------------------------------------------------

// PickleSibling reports whether any list is reachable from v along more
// than one reference.
func (ctx *Context) PickleSibling(v Value) bool {
	if !v.IsList() {
		return false
	}
	seen := map[uint32]bool{v.slot(): true}
	queue := []Value{v}
	for len(queue) > 0 {
		l := ctx.heap.List(queue[0])
		queue = queue[1:]
		for _, c := range l.Vals {
			if !c.IsList() {
				continue
			}
			if seen[c.slot()] {
				return true
			}
			seen[c.slot()] = true
			queue = append(queue, c)
		}
	}
	return false
}

// PickleCircular reports whether v contains a list that reaches itself.
func (ctx *Context) PickleCircular(v Value) bool {
	if !v.IsList() {
		return false
	}
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[uint32]int)
	type item struct {
		list Value
		next int
	}
	stack := []item{{list: v}}
	state[v.slot()] = visiting
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		vals := ctx.heap.List(top.list).Vals
		if top.next >= len(vals) {
			state[top.list.slot()] = done
			stack = stack[:len(stack)-1]
			continue
		}
		c := vals[top.next]
		top.next++
		if !c.IsList() {
			continue
		}
		switch state[c.slot()] {
		case visiting:
			return true
		case 0:
			state[c.slot()] = visiting
			stack = append(stack, item{list: c})
		}
	}
	return false
}

// PickleCopy deep-copies the lists reachable from v, preserving sharing and
// cycles. Strings are immutable and are not copied.
func (ctx *Context) PickleCopy(v Value) Value {
	if !v.IsList() {
		return v
	}
	copies := make(map[uint32]Value)
	var order []Value
	queue := []Value{v}
	copies[v.slot()] = ctx.NewListGive(nil)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, c := range ctx.heap.List(cur).Vals {
			if c.IsList() {
				if _, ok := copies[c.slot()]; !ok {
					copies[c.slot()] = ctx.NewListGive(nil)
					queue = append(queue, c)
				}
			}
		}
	}
	for _, src := range order {
		vals := ctx.heap.List(src).Vals
		dst := make([]Value, len(vals))
		for i, c := range vals {
			if c.IsList() {
				dst[i] = copies[c.slot()]
			} else {
				dst[i] = c
			}
		}
		ctx.heap.List(copies[src.slot()]).Vals = dst
	}
	return copies[v.slot()]
}

func init() {
	registerLib(map[string]LibFunc{
		"pickle.json": func(ctx *Context, args []Value) Value { return ctx.PickleJSON(arg(args, 0)) },
		"pickle.bin":  func(ctx *Context, args []Value) Value { return ctx.PickleBin(arg(args, 0)) },
		"pickle.val":  func(ctx *Context, args []Value) Value { return ctx.PickleVal(arg(args, 0)) },
		"pickle.valid": func(ctx *Context, args []Value) Value {
			if f := ctx.PickleValid(arg(args, 0)); f != PickleInvalid {
				return Num(float64(f))
			}
			return Nil
		},
		"pickle.sibling":  func(ctx *Context, args []Value) Value { return Bool(ctx.PickleSibling(arg(args, 0))) },
		"pickle.circular": func(ctx *Context, args []Value) Value { return Bool(ctx.PickleCircular(arg(args, 0))) },
		"pickle.copy":     func(ctx *Context, args []Value) Value { return ctx.PickleCopy(arg(args, 0)) },
	})
}
