package a2a

import "context"

// taskContext carries the identity of the task driving the current
// Process call, plus a way to ask the task store whether it has since
// been cancelled, without adding a TaskID parameter to the Agent
// contract. It is threaded through context the same way team's own
// nested-team visited-set is: a value only the originating caller
// (rpcserver) sets and only callers further down the same call chain
// (router, remoteagent) read.
type taskContext struct {
	taskID      string
	isCancelled func() bool
}

type taskContextKey struct{}

// WithTaskContext attaches taskID and a cancellation poller to ctx.
// isCancelled is called at most once per check and should be cheap
// (taskstore.Store.IsCancelled is a single guarded map lookup).
func WithTaskContext(ctx context.Context, taskID string, isCancelled func() bool) context.Context {
	return context.WithValue(ctx, taskContextKey{}, taskContext{taskID: taskID, isCancelled: isCancelled})
}

// TaskIDFromContext returns the task id attached by WithTaskContext, if
// any.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	tc, ok := ctx.Value(taskContextKey{}).(taskContext)
	if !ok {
		return "", false
	}
	return tc.taskID, true
}

// IsCancelled reports whether the task driving ctx has had cancellation
// requested. A ctx with no attached task context (e.g. a Router driven
// directly in a test, with no owning rpcserver task) is never
// cancelled.
func IsCancelled(ctx context.Context) bool {
	tc, ok := ctx.Value(taskContextKey{}).(taskContext)
	if !ok || tc.isCancelled == nil {
		return false
	}
	return tc.isCancelled()
}
