package harness

import "time"

// WithTimeout returns an [Operation] that works on op in an inner [Task]
// under a deadline of d, and completes when either op completes or the
// deadline expires, whichever is observed first. When the deadline wins,
// the inner Task is canceled at its next suspension point.
//
// The deadline is inspected first on every resumption, so when both the
// deadline and op's completion are pending, the outcome is timed out. In
// particular, with a non-positive d, op is never even started. Being timed
// out is an outcome, not an error: it is reported by setting *timedOut
// (when timedOut is not nil).
func (op Operation) WithTimeout(e *Executor, d time.Duration, timedOut *bool) Operation {
	return func(t *Task) Result {
		tm := NewTimer(e, d)
		if tm.Expired() {
			setBool(timedOut, true)
			return t.End()
		}
		t.Defer(tm.Stop)
		done := false
		var sig Signal
		t.Spawn("op", op.Then(Do(func() {
			done = true
			sig.Notify()
		})))
		if done {
			setBool(timedOut, false)
			return t.End()
		}
		t.Watch(tm, &sig)
		return t.Yield(func(t *Task) Result {
			setBool(timedOut, tm.Expired())
			return t.End()
		})
	}
}
