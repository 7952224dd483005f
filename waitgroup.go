package harness

// A WaitGroup is a [Signal] with a counter.
//
// Calling the Add or Done method of a WaitGroup, in an [Operation] function,
// updates the counter and, when the counter becomes zero, resumes any [Task]
// that is watching the WaitGroup.
//
// A WaitGroup must not be shared by more than one [Executor].
type WaitGroup struct {
	Signal
	n int
}

// Add adds delta, which may be negative, to the [WaitGroup] counter.
// If the [WaitGroup] counter becomes zero, Add resumes any [Task] that is
// watching wg.
// If the [WaitGroup] counter is negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	if wg.n >= 0 {
		wg.n += delta
	}
	if wg.n < 0 {
		panic("harness(WaitGroup): negative counter")
	}
	if wg.n == 0 && delta != 0 {
		wg.Notify()
	}
}

// Done decrements the [WaitGroup] counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Await returns an [Operation] that awaits until the [WaitGroup] counter
// becomes zero, and then completes.
func (wg *WaitGroup) Await() Operation {
	return func(t *Task) Result {
		if wg.n != 0 {
			return t.Await(wg)
		}
		return t.End()
	}
}
