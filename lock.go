package cds

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrLockPoisoned is the panic value (wrapped with a stack trace) raised
// when a caller acquires a bucket whose previous writer panicked while
// holding the lock. The entries guarded by that lock may be half-updated
// and are never handed out again.
//
// Use errors.Is on the recovered value to detect it.
var ErrLockPoisoned = errors.New("cds: lock poisoned by a panicking writer")

// bucketLock is a reader/writer lock that can be poisoned.
//
// Poisoning is sticky: once set, every lock and rlock panics after
// releasing the mutex again, so a poisoned bucket never deadlocks its
// callers, it fails them.
type bucketLock struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
}

func (l *bucketLock) lock() {
	l.mu.Lock()
	if l.poisoned.Load() {
		l.mu.Unlock()
		panic(errors.WithStack(ErrLockPoisoned))
	}
}

func (l *bucketLock) unlock() {
	l.mu.Unlock()
}

func (l *bucketLock) rlock() {
	l.mu.RLock()
	if l.poisoned.Load() {
		l.mu.RUnlock()
		panic(errors.WithStack(ErrLockPoisoned))
	}
}

func (l *bucketLock) runlock() {
	l.mu.RUnlock()
}

// unlockPoisoned releases a write lock whose critical section did not run
// to completion and marks it unusable.
func (l *bucketLock) unlockPoisoned() {
	l.poisoned.Store(true)
	l.mu.Unlock()
}

func (l *bucketLock) isPoisoned() bool {
	return l.poisoned.Load()
}
