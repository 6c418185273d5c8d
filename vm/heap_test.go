package vm

import "testing"

func TestHeapStrings(t *testing.T) {
	h := NewHeap()
	src := []byte("abc")
	v := h.NewStr(src)
	src[0] = 'X'
	s := h.Str(v)
	if s.String() != "abc" {
		t.Errorf("NewStr did not copy: %q", s.String())
	}
	// storage keeps a trailing NUL past the visible bytes
	if full := s.Bytes[:cap(s.Bytes)]; full[len(s.Bytes)] != 0 {
		t.Error("missing NUL terminator")
	}
	if e := h.Str(h.NewStrString("")); e.Len() != 0 {
		t.Errorf("empty string Len = %d", e.Len())
	}
	if h.Live() != 2 {
		t.Errorf("Live = %d, want 2", h.Live())
	}
}

func TestHeapListsOwnership(t *testing.T) {
	h := NewHeap()
	vals := []Value{Num(1), Num(2)}
	v := h.NewList(vals)
	vals[0] = Num(9)
	if h.List(v).Vals[0] != Num(1) {
		t.Error("NewList did not copy")
	}
	g := h.NewListGive(vals)
	vals[1] = Num(7)
	if h.List(g).Vals[1] != Num(7) {
		t.Error("NewListGive copied")
	}
}

func TestHeapForeignHandlePanics(t *testing.T) {
	a, b := NewHeap(), NewHeap()
	if a.ID() == b.ID() {
		t.Fatal("heaps share an id")
	}
	v := a.NewStrString("x")
	if b.Valid(v) {
		t.Error("foreign handle reported valid")
	}
	defer func() {
		if recover() == nil {
			t.Error("using a foreign handle did not panic")
		}
	}()
	b.Str(v)
}

func TestListObjectOps(t *testing.T) {
	l := &ListObject{}
	l.Push(Num(1))
	l.Push(Num(2))
	l.Unshift(Num(0))
	l.Append([]Value{Num(3), Num(4)})
	l.Prepend([]Value{Num(-1)})
	want := []float64{-1, 0, 1, 2, 3, 4}
	if l.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", l.Len(), len(want))
	}
	for i, f := range want {
		if l.At(i).Float() != f {
			t.Errorf("At(%d) = %v, want %v", i, l.At(i).Float(), f)
		}
	}
	if v, ok := l.Shift(); !ok || v.Float() != -1 {
		t.Errorf("Shift = %v, %v", v, ok)
	}
	if v, ok := l.Pop(); !ok || v.Float() != 4 {
		t.Errorf("Pop = %v, %v", v, ok)
	}
	if !l.At(99).IsNil() || !l.At(-1).IsNil() {
		t.Error("At out of range is not nil")
	}

	empty := &ListObject{}
	if _, ok := empty.Pop(); ok {
		t.Error("Pop on empty list succeeded")
	}
	if _, ok := empty.Shift(); ok {
		t.Error("Shift on empty list succeeded")
	}
}

func TestListObjectSplice(t *testing.T) {
	tests := []struct {
		start, n int
		ins      []float64
		want     []float64
	}{
		{1, 1, []float64{9, 9}, []float64{1, 9, 9, 3}},
		{0, 3, nil, nil},
		{3, 0, []float64{4}, []float64{1, 2, 3, 4}},
		{0, 0, []float64{0}, []float64{0, 1, 2, 3}},
		{1, 2, []float64{7}, []float64{1, 7}},
	}
	for _, tt := range tests {
		l := &ListObject{Vals: []Value{Num(1), Num(2), Num(3)}}
		var ins []Value
		for _, f := range tt.ins {
			ins = append(ins, Num(f))
		}
		l.Splice(tt.start, tt.n, ins)
		if l.Len() != len(tt.want) {
			t.Errorf("Splice(%d,%d,%v) len = %d, want %d", tt.start, tt.n, tt.ins, l.Len(), len(tt.want))
			continue
		}
		for i, f := range tt.want {
			if l.Vals[i].Float() != f {
				t.Errorf("Splice(%d,%d,%v)[%d] = %v, want %v", tt.start, tt.n, tt.ins, i, l.Vals[i].Float(), f)
			}
		}
	}
}

func TestListObjectSplicePanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Splice past the end did not panic")
		}
	}()
	l := &ListObject{Vals: []Value{Num(1)}}
	l.Splice(1, 1, nil)
}

func TestListObjectResize(t *testing.T) {
	l := &ListObject{Vals: []Value{Num(1), Num(2), Num(3)}}
	l.Resize(1)
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
	l.Resize(4)
	if l.Len() != 4 || !l.Vals[1].IsNil() || !l.Vals[3].IsNil() {
		t.Errorf("grown list = %v", l.Vals)
	}
}

func TestListObjectUser(t *testing.T) {
	l := &ListObject{}
	if _, ok := l.GetUser(1); ok {
		t.Error("GetUser on plain list succeeded")
	}
	l.SetUser(2, "payload")
	if u, ok := l.GetUser(2); !ok || u != "payload" {
		t.Errorf("GetUser(2) = %v, %v", u, ok)
	}
	if _, ok := l.GetUser(1); ok {
		t.Error("GetUser with the wrong type succeeded")
	}
}
