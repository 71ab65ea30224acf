package query

import (
	"context"
	"fmt"
)

func wrap[T any](load func(ctx context.Context) (T, error)) Loader {
	return func(ctx context.Context) (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func cast[T any](key Key, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s holds %T, not %T", key.Display(), v, zero)
	}
	return typed, nil
}

// Fetch is the typed form of Client.FetchValue
func Fetch[T any](ctx context.Context, c *Client, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.FetchValue(ctx, key, wrap(load))
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

// Get reads the cached value of key without fetching
func Get[T any](c *Client, key Key) (T, bool) {
	e := c.State(key)
	return Value[T](e)
}

// Value extracts a typed value from an entry
func Value[T any](e Entry) (T, bool) {
	var zero T
	if !e.HasValue {
		return zero, false
	}
	typed, ok := e.Value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Optimistic replaces the value of key with update(current).
// update receives the zero value when nothing is cached.
func Optimistic[T any](c *Client, key Key, update func(current T) T) Snapshot {
	return c.SetData(key, func(current any, ok bool) any {
		var typed T
		if ok {
			typed, _ = current.(T)
		}
		return update(typed)
	})
}

// Watch is the typed form of Client.Watch
func Watch[T any](c *Client, key Key, load func(ctx context.Context) (T, error), listener func(Entry), opts WatchOptions) func() {
	return c.Watch(key, wrap(load), listener, opts)
}
