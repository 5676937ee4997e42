package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrWaitTimeout is returned by WaitFor when the condition never held
var ErrWaitTimeout = errors.New("condition not met before timeout")

// Condition reports whether the awaited state has been reached
type Condition func(ctx context.Context) (bool, error)

// WaitFor polls cond every interval until it returns true, returns an error, or
// timeout elapses. The first check runs immediately.
func WaitFor(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w after %v", ErrWaitTimeout, timeout)
		}
		ok, err := cond(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w after %v: %v", ErrWaitTimeout, timeout, err)
			}
			return err
		}
		if ok {
			return nil
		}
	}
}

// WaitStable polls measure until two consecutive readings are equal, which is how
// a lazily growing page (scroll height, element count) signals it has settled.
func WaitStable(ctx context.Context, interval, timeout time.Duration, measure func(ctx context.Context) (int64, error)) (int64, error) {
	last := int64(-1)
	err := WaitFor(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		current, err := measure(ctx)
		if err != nil {
			return false, err
		}
		stable := current == last
		last = current
		return stable, nil
	})
	return last, err
}
