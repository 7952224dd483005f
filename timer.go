package harness

import "time"

// A Timer is a one-shot deadline that implements [Event].
//
// A Timer starts counting down when created. Once the duration elapses,
// it enters its [Executor] and resumes any [Task] that is watching it.
// A Timer created with a non-positive duration is expired from the start.
//
// A Timer must not be shared by more than one [Executor].
type Timer struct {
	Signal
	expired bool
	cancel  func() bool
}

// NewTimer creates a [Timer] that expires after d, delivering the expiry
// through e.
func NewTimer(e *Executor, d time.Duration) *Timer {
	tm := new(Timer)
	if d <= 0 {
		tm.expired = true
		return tm
	}
	t := time.AfterFunc(d, func() {
		e.Spawn("timer", Do(tm.expire))
	})
	tm.cancel = t.Stop
	return tm
}

func (tm *Timer) expire() {
	tm.expired = true
	tm.Notify()
}

// Expired reports whether tm has expired.
//
// One should only call this method in an [Operation] function, or before
// the [Executor] has started running.
func (tm *Timer) Expired() bool {
	return tm.expired
}

// Stop cancels tm. A stopped Timer never expires, unless it already has.
// Stop is safe to call more than once, and from any goroutine.
func (tm *Timer) Stop() {
	if tm.cancel != nil {
		tm.cancel()
	}
}

// Done returns an [Operation] that awaits until tm expires, and then
// completes. If tm is stopped before it expires, the Operation never
// completes.
func (tm *Timer) Done() Operation {
	return func(t *Task) Result {
		if !tm.expired {
			return t.Await(tm)
		}
		return t.End()
	}
}
