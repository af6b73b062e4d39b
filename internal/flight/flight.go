// Package flight provides a single-slot scheduler: work submitted while a
// previous job is still running is dropped, never queued.
package flight

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Slot runs at most one job at a time.
type Slot struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewSlot() *Slot {
	return &Slot{sem: semaphore.NewWeighted(1)}
}

// TryGo starts fn on a new goroutine if the slot is free and reports whether
// it did. A busy slot drops fn.
func (s *Slot) TryGo(ctx context.Context, fn func(ctx context.Context)) bool {
	if !s.sem.TryAcquire(1) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		fn(ctx)
	}()
	return true
}

// Busy reports whether a job currently holds the slot.
func (s *Slot) Busy() bool {
	if !s.sem.TryAcquire(1) {
		return true
	}
	s.sem.Release(1)
	return false
}

// Wait blocks until the running job, if any, has returned.
func (s *Slot) Wait() {
	s.wg.Wait()
}
