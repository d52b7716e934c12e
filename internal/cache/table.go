// Package cache memoizes expensive computations per scope and key.
//
// A scope is one generation cycle: everything computed under it stays
// cached until the scope is reset. Within a scope each key is computed at
// most once, even when many goroutines ask for it at the same moment; late
// arrivals block until the first computation finishes and then share its
// outcome, failures included.
//
// Values pass through a Copier on the way in and on the way out, so callers
// own what they get back and may mutate it freely.
package cache

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/texgen-mcp/internal/imaging"
)

// ErrUncacheable is returned for an empty key. Callers with no stable key
// should compute directly instead.
var ErrUncacheable = errors.New("value has no cache key")

// Copier returns an independent copy of a value.
type Copier[V any] func(V) V

// Stats reports cache activity since the table was created.
type Stats struct {
	// Hits counts requests answered by an existing entry, including
	// requests that waited on an in-flight computation.
	Hits uint64 `json:"hits"`
	// Misses counts computations started.
	Misses uint64 `json:"misses"`
	// Failures counts computations that returned an error.
	Failures uint64 `json:"failures"`
	// Scopes is the number of scopes currently holding entries.
	Scopes int `json:"scopes"`
	// Entries is the number of entries across all scopes.
	Entries int `json:"entries"`
}

// entry is a value computed exactly once. done is closed once value and
// err are final.
type entry[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Table is a scoped, compute-once cache.
//
// Table is safe for concurrent use by multiple goroutines. A single mutex
// guards the scope maps; waiting for an in-flight computation happens on the
// entry, outside that lock, so slow computations for one key never block
// lookups of another.
//
// # Example Usage
//
//	t := cache.NewImageTable()
//	img, err := t.GetOrCompute("cycle-1", key, func() (*image.NRGBA, error) {
//	    return render(node)
//	})
//	t.Reset("cycle-1") // release everything computed in that cycle
type Table[V any] struct {
	mu     sync.Mutex
	copy   Copier[V]
	scopes map[string]map[string]*entry[V]

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
}

// New creates an empty table. A nil copier stores and returns values as
// they are, which is only safe for immutable values.
func New[V any](copier Copier[V]) *Table[V] {
	if copier == nil {
		copier = func(v V) V { return v }
	}
	return &Table[V]{
		copy:   copier,
		scopes: make(map[string]map[string]*entry[V]),
	}
}

// NewImageTable creates a table of images that hands every caller its own
// pixel buffer.
func NewImageTable() *Table[*image.NRGBA] {
	return New(func(img *image.NRGBA) *image.NRGBA {
		if img == nil {
			return nil
		}
		return imaging.Copy(img)
	})
}

// GetOrCompute returns the value cached under key in scope, computing it
// with compute if no entry exists yet.
//
// Parameters:
//   - scope: The generation cycle the entry belongs to.
//   - key: A stable, content-derived key. Must not be empty.
//   - compute: Produces the value. Called at most once per scope and key.
//
// Returns:
//   - V: A copy of the cached value.
//   - error: The error compute returned, replayed to every caller of the
//     same key until the scope is reset, or ErrUncacheable for an empty key.
//
// A panic in compute is recorded as an error so that waiting callers are
// released, then re-raised in the goroutine that ran compute.
func (t *Table[V]) GetOrCompute(scope, key string, compute func() (V, error)) (V, error) {
	var zero V
	if key == "" {
		return zero, ErrUncacheable
	}

	t.mu.Lock()
	entries, ok := t.scopes[scope]
	if !ok {
		entries = make(map[string]*entry[V])
		t.scopes[scope] = entries
	}
	if e, ok := entries[key]; ok {
		t.mu.Unlock()
		t.hits.Add(1)
		<-e.done
		if e.err != nil {
			return zero, e.err
		}
		return t.copy(e.value), nil
	}
	e := &entry[V]{done: make(chan struct{})}
	entries[key] = e
	t.mu.Unlock()
	t.misses.Add(1)

	t.run(e, compute)
	if e.err != nil {
		return zero, e.err
	}
	return t.copy(e.value), nil
}

func (t *Table[V]) run(e *entry[V], compute func() (V, error)) {
	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("computation panicked: %v", r)
			t.failures.Add(1)
			panic(r)
		}
	}()
	v, err := compute()
	if err != nil {
		e.err = err
		t.failures.Add(1)
		return
	}
	e.value = t.copy(v)
}

// Reset drops every entry of scope. Computations still running finish into
// detached entries; their callers still get the result.
func (t *Table[V]) Reset(scope string) {
	t.mu.Lock()
	delete(t.scopes, scope)
	t.mu.Unlock()
}

// ResetAll drops every scope.
func (t *Table[V]) ResetAll() {
	t.mu.Lock()
	t.scopes = make(map[string]map[string]*entry[V])
	t.mu.Unlock()
}

// Len returns the number of entries in scope, including in-flight ones.
func (t *Table[V]) Len(scope string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.scopes[scope])
}

// Stats returns a snapshot of the table's counters.
func (t *Table[V]) Stats() Stats {
	t.mu.Lock()
	scopes, entries := len(t.scopes), 0
	for _, m := range t.scopes {
		entries += len(m)
	}
	t.mu.Unlock()
	return Stats{
		Hits:     t.hits.Load(),
		Misses:   t.misses.Load(),
		Failures: t.failures.Load(),
		Scopes:   scopes,
		Entries:  entries,
	}
}
