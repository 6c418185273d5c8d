package vm

import "fmt"

// UserType identifies a registered host object kind. Zero means none.
type UserType int

type userTypeInfo struct {
	hint string
	free func(user any)
}

// AddUserType registers a host object kind. hint appears in diagnostics; free,
// if non-nil, runs when a tagged list is collected or the context closes.
func (ctx *Context) AddUserType(hint string, free func(user any)) UserType {
	ctx.checkOpen()
	ctx.userTypes = append(ctx.userTypes, userTypeInfo{hint: hint, free: free})
	return UserType(len(ctx.userTypes))
}

func (ctx *Context) userType(ut UserType) userTypeInfo {
	if ut <= 0 || int(ut) > len(ctx.userTypes) {
		panic(fmt.Sprintf("vm: unknown usertype %d", int(ut)))
	}
	return ctx.userTypes[ut-1]
}

// UserHint returns the diagnostic hint of ut.
func (ctx *Context) UserHint(ut UserType) string { return ctx.userType(ut).hint }

// UserFree returns the free hook of ut, which may be nil.
func (ctx *Context) UserFree(ut UserType) func(user any) { return ctx.userType(ut).free }

func (ctx *Context) freeUser(l *ListObject) {
	if int(l.UserType) > len(ctx.userTypes) {
		return
	}
	info := ctx.userTypes[l.UserType-1]
	user := l.User
	l.User = nil
	l.UserType = 0
	if info.free != nil {
		info.free(user)
	}
}

// NewUser allocates a host object: a one element list holding the hint
// string, tagged with ut and user.
func (ctx *Context) NewUser(ut UserType, user any) Value {
	hint := ctx.NewStrString(ctx.UserHint(ut))
	v := ctx.heap.NewListGive([]Value{hint})
	ctx.heap.List(v).SetUser(ut, user)
	return v
}

// IsUser reports whether v is a list tagged with ut.
func (ctx *Context) IsUser(v Value, ut UserType) bool {
	if !v.IsList() {
		return false
	}
	return ctx.heap.List(v).UserType == ut && ut != 0
}

// ListSetUser tags an existing list.
func (ctx *Context) ListSetUser(v Value, ut UserType, user any) {
	ctx.userType(ut)
	ctx.heap.List(v).SetUser(ut, user)
}

// ListGetUser returns the host value of a list tagged with ut.
func (ctx *Context) ListGetUser(v Value, ut UserType) (any, bool) {
	if !v.IsList() {
		return nil, false
	}
	return ctx.heap.List(v).GetUser(ut)
}
