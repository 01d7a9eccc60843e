// Package lockmap provides per-key mutual exclusion.
package lockmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dogmatiq/cosyne"
)

// Map provides mutual exclusion per correlation key.
//
// At most one caller holds the lock for any given key at a time. Locks on
// distinct keys are independent, so throughput scales with the number of
// distinct keys.
//
// The zero-value is ready for use.
type Map struct {
	m     sync.Mutex
	locks map[string]*lock
}

// lock is the bookkeeping for a single key.
type lock struct {
	mux cosyne.Mutex

	// refs is the number of callers that hold the lock or are blocked
	// acquiring it.
	refs int
}

// Lock acquires exclusive access to key, blocking until it is available or
// ctx is canceled.
func (m *Map) Lock(ctx context.Context, key string) error {
	m.m.Lock()

	if m.locks == nil {
		m.locks = map[string]*lock{}
	}

	l, ok := m.locks[key]
	if !ok {
		l = &lock{}
		m.locks[key] = l
	}

	l.refs++

	m.m.Unlock()

	if err := l.mux.Lock(ctx); err != nil {
		m.release(l)
		return err
	}

	return nil
}

// Unlock releases exclusive access to key.
//
// It panics if the lock for key is not currently held.
func (m *Map) Unlock(key string) {
	m.m.Lock()
	l, ok := m.locks[key]
	m.m.Unlock()

	if !ok {
		panic(fmt.Sprintf(
			"lock for key %#v is not held",
			key,
		))
	}

	l.mux.Unlock()
	m.release(l)
}

// Remove drops the bookkeeping for a key that is no longer in use.
//
// It does nothing if the lock for key is currently held, or if any caller is
// blocked acquiring it.
func (m *Map) Remove(key string) {
	m.m.Lock()
	defer m.m.Unlock()

	if l, ok := m.locks[key]; ok && l.refs == 0 {
		delete(m.locks, key)
	}
}

// Len returns the number of keys that have lock bookkeeping.
func (m *Map) Len() int {
	m.m.Lock()
	defer m.m.Unlock()

	return len(m.locks)
}

// release decrements l's reference count.
func (m *Map) release(l *lock) {
	m.m.Lock()
	defer m.m.Unlock()

	l.refs--
}
