// Package hostlib is a small host library for embedding the sink runtime.
//
// It installs natives on a context and drives the context to completion,
// resolving asynchronous natives as it goes:
//
//	h := hostlib.NewHost(store)
//	hostlib.Register(ctx, h)
//	res, err := h.Run(context.Background(), ctx, hostlib.RunOptions{})
//
// Natives:
//
//	sleep ms          suspend for ms milliseconds, resumes with nil
//	time.now          milliseconds since the Unix epoch
//	store.get key     pickled value stored under key, or nil
//	store.set key v   store v under key, returns v
//	store.del key     1 if key existed, else nil
//	store.keys [pre]  sorted keys, optionally filtered by prefix
//
// The store natives are only registered when the host has a Store.
package hostlib
