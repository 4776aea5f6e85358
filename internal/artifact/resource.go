// internal/artifact/resource.go
package artifact

import (
	"context"
	"sync"
	"sync/atomic"
)

// Resource is a process-wide value built at most once. A failed build is cached too:
// every later Get returns the same error.
type Resource[T any] struct {
	name   string
	load   func(ctx context.Context) (T, error)
	once   sync.Once
	value  T
	err    error
	loaded atomic.Bool
}

func NewResource[T any](name string, load func(ctx context.Context) (T, error)) *Resource[T] {
	return &Resource[T]{name: name, load: load}
}

// Ready returns a Resource that already holds v.
func Ready[T any](name string, v T) *Resource[T] {
	r := &Resource[T]{name: name}
	r.once.Do(func() {
		r.value = v
		r.loaded.Store(true)
	})
	return r
}

// Get builds the value on first call using ctx and returns the cached result afterwards.
func (r *Resource[T]) Get(ctx context.Context) (T, error) {
	r.once.Do(func() {
		r.value, r.err = r.load(ctx)
		if r.err == nil {
			r.loaded.Store(true)
		}
	})
	return r.value, r.err
}

// Loaded reports whether the value was built successfully.
func (r *Resource[T]) Loaded() bool {
	return r.loaded.Load()
}

func (r *Resource[T]) Name() string {
	return r.name
}
