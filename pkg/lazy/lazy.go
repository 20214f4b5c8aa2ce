// Package lazy provides a fetch-once memoization cell for values that are
// expensive or fallible to obtain, such as secrets or network handles.
//
// Unlike sync.Once, a failed fetch is not cached: the next caller retries
// from scratch, so a transient outage self-heals without a restart. While a
// fetch is in flight, concurrent callers share its result instead of racing
// to populate the cell.
package lazy

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cell memoizes the first successful result of a fetch function.
// The zero value is ready to use. A Cell must not be copied after first use.
type Cell[T any] struct {
	value atomic.Pointer[T]
	group singleflight.Group
}

// Get returns the cached value, or runs fetch to obtain one. At most one
// fetch is in flight at a time; concurrent callers wait for it and share its
// outcome. Only a successful fetch populates the cell.
func (c *Cell[T]) Get(ctx context.Context, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v := c.value.Load(); v != nil {
		return *v, nil
	}
	result, err, _ := c.group.Do("", func() (any, error) {
		// A previous caller may have populated the cell while this one was
		// queued behind an earlier flight.
		if v := c.value.Load(); v != nil {
			return *v, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.value.Store(&value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
