package vm

import "testing"

func TestUserTypes(t *testing.T) {
	ctx := newBareContext(t)
	var freed []any
	file := ctx.AddUserType("file", func(user any) { freed = append(freed, user) })
	sock := ctx.AddUserType("sock", nil)
	if file != 1 || sock != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", file, sock)
	}
	if ctx.UserHint(file) != "file" || ctx.UserFree(sock) != nil {
		t.Error("metadata not stored")
	}

	v := ctx.NewUser(file, 7)
	if !ctx.IsUser(v, file) || ctx.IsUser(v, sock) || ctx.IsUser(Num(1), file) {
		t.Error("IsUser wrong")
	}
	// the list carries its hint so programs can print it
	if got := ctx.ToString(v); got != "{'file'}" {
		t.Errorf("ToString = %s", got)
	}
	if u, ok := ctx.ArgUser([]Value{v}, 0, file); !ok || u != 7 {
		t.Errorf("ArgUser = %v, %v", u, ok)
	}
	if _, ok := ctx.ArgUser([]Value{v}, 0, sock); ok {
		t.Error("ArgUser accepted the wrong type")
	}

	plain := ctx.NewList()
	ctx.ListSetUser(plain, sock, "s")
	if u, ok := ctx.ListGetUser(plain, sock); !ok || u != "s" {
		t.Errorf("ListGetUser = %v, %v", u, ok)
	}

	ctx.GC()
	if len(freed) != 1 || freed[0] != 7 {
		t.Errorf("freed = %v, want [7]", freed)
	}
}

func TestUnknownUserTypePanics(t *testing.T) {
	ctx := newBareContext(t)
	defer func() {
		if recover() == nil {
			t.Error("UserHint(99) did not panic")
		}
	}()
	ctx.UserHint(99)
}

func TestArgHelpers(t *testing.T) {
	ctx := newBareContext(t)
	args := []Value{Num(2), ctx.NewStrString("s"), ctx.NewList(), Nil}

	if n, ok := ctx.ArgNum(args, 0); !ok || n != 2 {
		t.Errorf("ArgNum = %v, %v", n, ok)
	}
	if _, ok := ctx.ArgNum(args, 1); ok {
		t.Error("ArgNum accepted a string")
	}
	if s, ok := ctx.ArgStr(args, 1); !ok || s.String() != "s" {
		t.Errorf("ArgStr = %v, %v", s, ok)
	}
	if _, ok := ctx.ArgList(args, 2); !ok {
		t.Error("ArgList rejected a list")
	}
	if ctx.ArgBool(args, 3) || !ctx.ArgBool(args, 0) || ctx.ArgBool(args, 10) {
		t.Error("ArgBool wrong")
	}
	if _, ok := ctx.ArgStr(args, -1); ok {
		t.Error("negative index accepted")
	}
}
