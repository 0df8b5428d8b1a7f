package shopping

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry hands out one Store per durable key, so all callers in the process
// that touch the same list go through the same lock.
type Registry struct {
	kv   KV
	opts Options

	mu     sync.Mutex
	stores map[string]*Store
	group  singleflight.Group
}

// NewRegistry creates a Registry whose stores persist to kv.
func NewRegistry(kv KV, opts Options) *Registry {
	return &Registry{
		kv:     kv,
		opts:   opts,
		stores: make(map[string]*Store),
	}
}

// Get returns the Store for key, loading it on first use. Concurrent first
// calls for the same key share a single load. A cached store is refreshed
// first, so writes made by another process on the same backend are picked up.
func (r *Registry) Get(ctx context.Context, key string) (*Store, error) {
	if st, ok := r.lookup(key); ok {
		if err := st.Refresh(ctx); err != nil {
			return nil, err
		}
		return st, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if st, ok := r.lookup(key); ok {
			return st, nil
		}
		st, err := NewStore(ctx, r.kv, key, r.opts)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.stores[key] = st
		r.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Close closes every store handed out so far and forgets them.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, st := range r.stores {
		if err := st.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.stores, key)
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(key string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[key]
	return st, ok
}
