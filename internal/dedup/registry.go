// Package dedup collapses concurrent, logically identical requests into a
// single in-flight call.
package dedup

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry tracks in-flight calls by key. Callers that arrive while a call
// for their key is running wait for it and share its result; once it settles
// the key is free again, whether it succeeded or failed.
type Registry struct {
	sfg singleflight.Group // prevents duplicate mutations

	mu      sync.Mutex
	pending map[string]int
	calls   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[string]int),
		calls:   make(map[string]int),
	}
}

// Run invokes fn unless a call under key is already running, in which case
// it waits for that call. fn runs detached from the cancellation of whichever
// caller started it, so one caller giving up never fails the others; a
// caller whose ctx ends stops waiting and gets ctx.Err().
func (r *Registry) Run(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shared := context.WithoutCancel(ctx)

	r.mu.Lock()
	r.pending[key]++
	r.mu.Unlock()

	ch := r.sfg.DoChan(key, func() (any, error) {
		r.mu.Lock()
		r.calls[key]++
		r.mu.Unlock()
		return fn(shared)
	})

	defer func() {
		r.mu.Lock()
		if r.pending[key]--; r.pending[key] <= 0 {
			delete(r.pending, key)
		}
		r.mu.Unlock()
	}()

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports whether any caller is currently waiting on key.
func (r *Registry) InFlight(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[key] > 0
}

// Calls is the number of times a factory actually ran for key.
func (r *Registry) Calls(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[key]
}

// Do is the typed form of Registry.Run.
func Do[T any](ctx context.Context, r *Registry, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := r.Run(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
