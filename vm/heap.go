package vm

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// StrObject is an immutable byte string. Non-empty strings keep a NUL byte
// just past the logical end of Bytes.
type StrObject struct {
	Bytes []byte
}

// String returns the bytes as a Go string.
func (s *StrObject) String() string { return string(s.Bytes) }

// Len returns the logical length in bytes.
func (s *StrObject) Len() int { return len(s.Bytes) }

// ListObject is the one mutable aggregate. UserType is zero for ordinary
// lists; host objects carry a registered usertype and an opaque User value.
type ListObject struct {
	Vals     []Value
	UserType UserType
	User     any
}

// Len returns the number of elements.
func (l *ListObject) Len() int { return len(l.Vals) }

// At returns the element at i, or nil when i is out of range.
func (l *ListObject) At(i int) Value {
	if i < 0 || i >= len(l.Vals) {
		return Nil
	}
	return l.Vals[i]
}

// Push appends v.
func (l *ListObject) Push(v Value) { l.Vals = append(l.Vals, v) }

// Pop removes and returns the last element.
func (l *ListObject) Pop() (Value, bool) {
	n := len(l.Vals)
	if n == 0 {
		return Nil, false
	}
	v := l.Vals[n-1]
	l.Vals[n-1] = Nil
	l.Vals = l.Vals[:n-1]
	return v, true
}

// Shift removes and returns the first element.
func (l *ListObject) Shift() (Value, bool) {
	if len(l.Vals) == 0 {
		return Nil, false
	}
	v := l.Vals[0]
	copy(l.Vals, l.Vals[1:])
	l.Vals[len(l.Vals)-1] = Nil
	l.Vals = l.Vals[:len(l.Vals)-1]
	return v, true
}

// Unshift inserts v at the front.
func (l *ListObject) Unshift(v Value) { l.Splice(0, 0, []Value{v}) }

// Append adds vals at the end.
func (l *ListObject) Append(vals []Value) { l.Vals = append(l.Vals, vals...) }

// Prepend adds vals at the front.
func (l *ListObject) Prepend(vals []Value) { l.Splice(0, 0, vals) }

// Splice removes n elements at start and inserts ins in their place. The
// range must already be clamped to the list.
func (l *ListObject) Splice(start, n int, ins []Value) {
	if start < 0 || n < 0 || start+n > len(l.Vals) {
		panic(fmt.Sprintf("vm: splice [%d:%d] out of range for list of %d", start, start+n, len(l.Vals)))
	}
	tail := len(l.Vals) - start - n
	size := start + len(ins) + tail
	if size > cap(l.Vals) {
		grown := make([]Value, size, size+size/2+4)
		copy(grown, l.Vals[:start])
		copy(grown[start+len(ins):], l.Vals[start+n:])
		l.Vals = grown
	} else {
		old := len(l.Vals)
		l.Vals = l.Vals[:max(size, old)]
		copy(l.Vals[start+len(ins):], l.Vals[start+n:start+n+tail])
		for i := size; i < old; i++ {
			l.Vals[i] = Nil
		}
		l.Vals = l.Vals[:size]
	}
	copy(l.Vals[start:], ins)
}

// Resize grows the list with nils or truncates it to n elements.
func (l *ListObject) Resize(n int) {
	if n < 0 {
		panic("vm: negative list size")
	}
	if n <= len(l.Vals) {
		clear(l.Vals[n:])
		l.Vals = l.Vals[:n]
		return
	}
	if n > cap(l.Vals) {
		grown := make([]Value, len(l.Vals), n)
		copy(grown, l.Vals)
		l.Vals = grown
	}
	l.Vals = l.Vals[:n]
}

// SetUser tags the list as a host object.
func (l *ListObject) SetUser(ut UserType, user any) {
	l.UserType = ut
	l.User = user
}

// GetUser returns the opaque value when the list carries usertype ut.
func (l *ListObject) GetUser(ut UserType) (any, bool) {
	if ut == 0 || l.UserType != ut {
		return nil, false
	}
	return l.User, true
}

// ---------------------------------------------------------------------------
// Heap: handle tables
// ---------------------------------------------------------------------------

var heapIDCounter atomic.Uint32

// Heap owns all string and list storage for one context. Handles issued by
// one heap are rejected by every other heap.
type Heap struct {
	id uint32

	strs     []*StrObject
	strFree  []uint32
	lists    []*ListObject
	listFree []uint32

	level     GCLevel
	live      int
	lastLive  int
	allocs    int
	lastStats GCStats

	// onFree runs for every collected list that carries a usertype.
	onFree func(l *ListObject)
}

// NewHeap creates an empty heap with the default GC level.
func NewHeap() *Heap {
	return &Heap{
		id:    heapIDCounter.Add(1),
		level: GCDefault,
	}
}

// ID returns the heap id embedded in every handle it issues.
func (h *Heap) ID() uint32 { return h.id }

// Live returns the number of live strings and lists.
func (h *Heap) Live() int { return h.live }

func (h *Heap) allocStr(s *StrObject) Value {
	h.live++
	h.allocs++
	if n := len(h.strFree); n > 0 {
		slot := h.strFree[n-1]
		h.strFree = h.strFree[:n-1]
		h.strs[slot] = s
		return handleValue(KindStr, h.id, slot)
	}
	h.strs = append(h.strs, s)
	return handleValue(KindStr, h.id, uint32(len(h.strs)-1))
}

func (h *Heap) allocList(l *ListObject) Value {
	h.live++
	h.allocs++
	if n := len(h.listFree); n > 0 {
		slot := h.listFree[n-1]
		h.listFree = h.listFree[:n-1]
		h.lists[slot] = l
		return handleValue(KindList, h.id, slot)
	}
	h.lists = append(h.lists, l)
	return handleValue(KindList, h.id, uint32(len(h.lists)-1))
}

// NewStr allocates a string holding a copy of b.
func (h *Heap) NewStr(b []byte) Value {
	if len(b) == 0 {
		return h.allocStr(&StrObject{})
	}
	buf := make([]byte, len(b)+1)
	copy(buf, b)
	return h.allocStr(&StrObject{Bytes: buf[:len(b)]})
}

// NewStrGive allocates a string that takes ownership of b.
func (h *Heap) NewStrGive(b []byte) Value {
	if len(b) == 0 {
		return h.allocStr(&StrObject{})
	}
	n := len(b)
	b = append(b, 0)
	return h.allocStr(&StrObject{Bytes: b[:n]})
}

// NewStrString allocates a string from a Go string.
func (h *Heap) NewStrString(s string) Value {
	if s == "" {
		return h.allocStr(&StrObject{})
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return h.allocStr(&StrObject{Bytes: buf[:len(s)]})
}

// NewList allocates a list holding a copy of vals.
func (h *Heap) NewList(vals []Value) Value {
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return h.allocList(&ListObject{Vals: cp})
}

// NewListGive allocates a list that takes ownership of vals.
func (h *Heap) NewListGive(vals []Value) Value {
	return h.allocList(&ListObject{Vals: vals})
}

// Str resolves a string handle. Foreign, stale or non-string handles panic.
func (h *Heap) Str(v Value) *StrObject {
	if v.kind != KindStr {
		panic(fmt.Sprintf("vm: expected string handle, got %s", v.kind))
	}
	h.checkOwner(v)
	slot := v.slot()
	if int(slot) >= len(h.strs) || h.strs[slot] == nil {
		panic(fmt.Sprintf("vm: stale string handle %d", slot))
	}
	return h.strs[slot]
}

// List resolves a list handle. Foreign, stale or non-list handles panic.
func (h *Heap) List(v Value) *ListObject {
	if v.kind != KindList {
		panic(fmt.Sprintf("vm: expected list handle, got %s", v.kind))
	}
	h.checkOwner(v)
	slot := v.slot()
	if int(slot) >= len(h.lists) || h.lists[slot] == nil {
		panic(fmt.Sprintf("vm: stale list handle %d", slot))
	}
	return h.lists[slot]
}

func (h *Heap) checkOwner(v Value) {
	if v.heapID() != h.id {
		panic(fmt.Sprintf("vm: handle from heap %d used with heap %d", v.heapID(), h.id))
	}
}

// Valid reports whether v resolves on this heap without panicking. Numbers,
// nil and async are always valid.
func (h *Heap) Valid(v Value) bool {
	switch v.kind {
	case KindStr:
		return v.heapID() == h.id && int(v.slot()) < len(h.strs) && h.strs[v.slot()] != nil
	case KindList:
		return v.heapID() == h.id && int(v.slot()) < len(h.lists) && h.lists[v.slot()] != nil
	}
	return true
}

// FreeAll releases every object. Usertype lists are passed to onFree once.
func (h *Heap) FreeAll() {
	for i, l := range h.lists {
		if l == nil {
			continue
		}
		h.lists[i] = nil
		if l.UserType != 0 && h.onFree != nil {
			h.onFree(l)
		}
	}
	h.strs = nil
	h.strFree = nil
	h.lists = nil
	h.listFree = nil
	h.live = 0
	h.lastLive = 0
	h.allocs = 0
}
