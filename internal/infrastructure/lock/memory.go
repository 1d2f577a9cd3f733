// Package lock provides the keyed mutual exclusion the tenancy coordinator
// takes around each property and tenant it writes.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nivaasi/backend/internal/application/tenancy"
)

// MemoryLocker serializes holders of the same key within one process.
// Entries are reference counted and removed once nobody holds or waits.
type MemoryLocker struct {
	mu          sync.Mutex
	entries     map[string]*memoryEntry
	waitTimeout time.Duration
}

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// NewMemoryLocker creates a MemoryLocker. A positive waitTimeout bounds how
// long Lock waits before giving up; zero waits until ctx is done.
func NewMemoryLocker(waitTimeout time.Duration) *MemoryLocker {
	return &MemoryLocker{
		entries:     make(map[string]*memoryEntry),
		waitTimeout: waitTimeout,
	}
}

// Lock blocks until key is free, ctx is done, or the wait timeout passes.
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireEntry(key)

	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.releaseEntry(key, e)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.releaseEntry(key, e)
		})
	}, nil
}

// Held reports how many keys currently have a holder or waiter
func (l *MemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLocker) acquireEntry(key string) *memoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *MemoryLocker) releaseEntry(key string, e *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

var _ tenancy.Locker = (*MemoryLocker)(nil)
