package fanout

import (
	"context"
	"time"

	"github.com/sells-group/rapport-api/internal/fault"
)

// WithTimeout runs fn under a derived deadline. If the deadline elapses
// before fn settles, the call fails with a fault.TimeoutError carrying msg
// and the operation is abandoned; its context is canceled so transports can
// abort in-flight requests. A late resolution from the abandoned fn is
// discarded. Parent-context cancellation is reported as-is, not as a
// timeout.
func WithTimeout[R any](ctx context.Context, d time.Duration, msg string, fn func(context.Context) (R, error)) (R, error) {
	var zero R

	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value R
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		v, err := fn(tctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && IsDeadline(o.err) && ctx.Err() == nil {
			return zero, &fault.TimeoutError{Msg: msg}
		}
		return o.value, o.err
	case <-tctx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &fault.TimeoutError{Msg: msg}
	}
}
