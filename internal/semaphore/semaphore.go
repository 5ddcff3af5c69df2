// Package semaphore provides the counting semaphore that gates how many search
// tasks may run at once.
//
// The semaphore is a buffered channel whose capacity is the concurrency limit:
// acquiring sends a token (blocking while the buffer is full) and releasing
// receives one. Every acquisition hands out a Permit whose Release is
// idempotent, so a task can defer it on every exit path without risking a
// double release.
package semaphore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Semaphore bounds the number of permits held at the same time.
type Semaphore struct {
	tokens   chan struct{}
	acquired atomic.Int64
	released atomic.Int64
}

// New creates a semaphore with limit permits. A limit below 1 would block every
// acquisition forever, so it is rejected.
func New(limit int) (*Semaphore, error) {
	if limit < 1 {
		return nil, fmt.Errorf("semaphore limit must be >= 1, got %d", limit)
	}
	return &Semaphore{tokens: make(chan struct{}, limit)}, nil
}

// AcquireContext blocks until a permit is available or ctx is done.
func (s *Semaphore) AcquireContext(ctx context.Context) (*Permit, error) {
	// Check first so a cancelled context never wins a free slot by chance.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case s.tokens <- struct{}{}:
		s.acquired.Add(1)
		return &Permit{sem: s}, nil
	}
}

func (s *Semaphore) release() {
	select {
	case <-s.tokens:
		s.released.Add(1)
	default:
		// Permit.Release is guarded by sync.Once, so reaching this means a
		// permit was forged outside AcquireContext.
		panic("semaphore: release without matching acquire")
	}
}

// Limit returns the total number of permits.
func (s *Semaphore) Limit() int {
	return cap(s.tokens)
}

// InUse returns the number of permits currently held.
func (s *Semaphore) InUse() int {
	return len(s.tokens)
}

// Available returns the number of permits that can be acquired without blocking.
func (s *Semaphore) Available() int {
	return cap(s.tokens) - len(s.tokens)
}

// Stats returns the number of acquisitions and releases since creation.
func (s *Semaphore) Stats() (acquired, released int64) {
	return s.acquired.Load(), s.released.Load()
}

// String returns "Semaphore(inUse/limit)".
func (s *Semaphore) String() string {
	return fmt.Sprintf("Semaphore(%d/%d)", s.InUse(), s.Limit())
}

// Permit is one unit of admission capacity. It must be released exactly once;
// extra Release calls are no-ops.
type Permit struct {
	sem  *Semaphore
	once sync.Once
}

// Release returns the permit to its semaphore and wakes one blocked acquirer.
func (p *Permit) Release() {
	if p == nil || p.sem == nil {
		return
	}
	p.once.Do(p.sem.release)
}
