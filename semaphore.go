package harness

import "slices"

// Semaphore provides a way to bound asynchronous access to a resource.
// The callers can request access with a given weight.
//
// Note that this Semaphore type does not provide backpressure for spawning
// a lot of tasks. One should instead look for a sync implementation.
//
// A Semaphore must not be shared by more than one [Executor].
type Semaphore struct {
	size    int64
	cur     int64
	waiters []*semawaiter
}

// NewSemaphore creates a new weighted semaphore with the given maximum
// combined weight.
func NewSemaphore(n int64) *Semaphore {
	return &Semaphore{size: n}
}

// Acquire returns an [Operation] that awaits until a weight of n is acquired
// from the semaphore, and then completes.
//
// Waiters acquire in FIFO order.
// If the awaiting [Task] is canceled after the weight was granted but before
// it resumed, the weight is released again.
func (s *Semaphore) Acquire(n int64) Operation {
	if n < 0 {
		panic("harness(Semaphore): negative weight")
	}
	return func(t *Task) Result {
		if len(s.waiters) == 0 && s.size-s.cur >= n {
			s.cur += n
			return t.End()
		}
		if n > s.size {
			return t.Await() // Impossible to succeed.
		}
		w := &semawaiter{s: s, n: n}
		s.waiters = append(s.waiters, w)
		t.Defer(func() {
			if t.Ending() {
				w.cancel()
			}
		})
		t.Watch(w)
		return t.Yield(Nop())
	}
}

// TryAcquire attempts to acquire a weight of n from the semaphore without
// awaiting. On success, it returns true.
//
// TryAcquire does not succeed while there are waiters, so that waiters are
// not starved.
//
// One should only call this method in an [Operation] function.
func (s *Semaphore) TryAcquire(n int64) bool {
	if n < 0 {
		panic("harness(Semaphore): negative weight")
	}
	if s.size-s.cur < n || len(s.waiters) != 0 {
		return false
	}
	s.cur += n
	return true
}

// Release releases the semaphore with a weight of n.
//
// One should only call this method in an [Operation] function.
func (s *Semaphore) Release(n int64) {
	if n < 0 {
		panic("harness(Semaphore): negative weight")
	}
	if s.cur >= 0 {
		s.cur -= n
	}
	if s.cur < 0 {
		panic("harness(Semaphore): released more than held")
	}
	s.notifyWaiters()
}

func (s *Semaphore) notifyWaiters() {
	i := 0
	for ; i < len(s.waiters); i++ {
		w := s.waiters[i]
		if s.size-s.cur < w.n {
			break
		}
		s.cur += w.n
		w.granted = true
		w.Notify()
	}
	s.waiters = slices.Delete(s.waiters, 0, i)
}

type semawaiter struct {
	Signal
	s       *Semaphore
	n       int64
	granted bool
}

func (w *semawaiter) cancel() {
	if !w.granted {
		w.s.removeWaiter(w)
		return
	}
	// Granted but never resumed. Give the weight back.
	w.granted = false
	w.s.Release(w.n)
}

func (s *Semaphore) removeWaiter(w *semawaiter) {
	if i := slices.Index(s.waiters, w); i != -1 {
		s.waiters = slices.Delete(s.waiters, i, i+1)
		// Removing a waiter can unblock those that were queued behind it.
		s.notifyWaiters()
	}
}
