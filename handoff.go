package harness

// A handoff is a channel with a capacity of one, used as a meeting point:
// a value moves across only when a write on one side and a read on the other
// have both arrived.
//
// The slot is in one of two states. While empty, it remembers at most one
// read waker. While occupied, it holds the pending value and remembers at
// most one writability waker and at most one flush waker. Registering a
// waker for a role replaces the one registered before; the replaced waiter
// is never woken.
type handoff[T any] struct {
	occupied     bool
	value        T
	readWake     *Signal
	writeWake    *Signal
	flushWake    *Signal
	senderGone   bool
	receiverGone bool
}

// fire consumes a registered waker and resumes whoever registered it.
func fire(pw **Signal) {
	if w := *pw; w != nil {
		*pw = nil
		w.Notify()
	}
}

// NewHandoff creates the two ends of a rendezvous channel.
//
// The channel itself never fails; each end can only observe that the other
// went away. Both ends must be used on the same [Executor].
func NewHandoff[T any]() (*Sender[T], *Receiver[T]) {
	h := new(handoff[T])
	return &Sender[T]{h}, &Receiver[T]{h}
}

// A Sender is the writing end of a rendezvous channel.
//
// At most one [Operation] per role should be in flight on a Sender at
// a time: a second one replaces the waker registered by the first, and
// the first is then never resumed.
type Sender[T any] struct {
	h *handoff[T]
}

// Ready returns an [Operation] that completes as soon as s can accept
// a value, that is, as soon as the slot is empty.
// It also completes if the receiving end has hung up, so that callers do
// not await writability that can never come.
func (s *Sender[T]) Ready() Operation {
	var sig Signal
	return func(t *Task) Result {
		h := s.h
		if !h.occupied || h.receiverGone {
			return t.End()
		}
		h.writeWake = &sig
		t.Watch(&sig)
		return t.Await()
	}
}

// Write places v into the slot and resumes a parked reader, if any.
// Write never awaits; it must only be called when the slot is empty,
// otherwise it panics.
// Use [Sender.Ready] to await writability first.
func (s *Sender[T]) Write(v T) {
	h := s.h
	if h.occupied {
		panic("harness(Handoff): slot is occupied")
	}
	h.occupied, h.value = true, v
	fire(&h.readWake)
}

// Flushed returns an [Operation] that completes as soon as the slot is
// empty, that is, as soon as a previously written value has been read.
// It also completes if the receiving end has hung up.
func (s *Sender[T]) Flushed() Operation {
	return s.flushed(nil)
}

func (s *Sender[T]) flushed(delivered *bool) Operation {
	var sig Signal
	return func(t *Task) Result {
		h := s.h
		if !h.occupied {
			setBool(delivered, true)
			return t.End()
		}
		if h.receiverGone {
			setBool(delivered, false)
			return t.End()
		}
		h.flushWake = &sig
		t.Watch(&sig)
		return t.Await()
	}
}

// Send returns an [Operation] that awaits writability, writes v, and then
// awaits until v has been read. It completes only after the rendezvous:
// the read side observes v strictly before Send completes.
//
// If the receiving end hangs up before v is read, Send completes without
// delivering and sets *delivered to false (when delivered is not nil);
// otherwise it sets *delivered to true.
func (s *Sender[T]) Send(v T, delivered *bool) Operation {
	var sig Signal
	return func(t *Task) Result {
		h := s.h
		if h.receiverGone {
			setBool(delivered, false)
			return t.End()
		}
		if h.occupied {
			h.writeWake = &sig
			t.Watch(&sig)
			return t.Await()
		}
		s.Write(v)
		return t.Switch(s.flushed(delivered))
	}
}

// Close returns an [Operation] that awaits until a previously written value
// has been read, and then hangs up the sending end. With a capacity of one
// there is nothing else to drain: closing is flushing, plus the hangup.
func (s *Sender[T]) Close() Operation {
	return s.Flushed().Then(Do(s.Hangup))
}

// Hangup marks the sending end as gone and resumes a parked reader, which
// then observes the channel as closed. Hangup never awaits; a value still
// in the slot remains readable.
func (s *Sender[T]) Hangup() {
	h := s.h
	h.senderGone = true
	fire(&h.readWake)
}

// A Receiver is the reading end of a rendezvous channel.
//
// A Receiver is meant for a single consumer: at most one receive should be
// in flight at a time.
type Receiver[T any] struct {
	h *handoff[T]
}

// Recv returns an [Operation] that awaits until a value is available, takes
// it, and resumes a parked writer and flusher. The read waker is registered
// before the slot is inspected, so a write that lands in between cannot be
// missed.
//
// On a take, Recv stores the value through dst (when dst is not nil) and
// sets *ok to true. If the sending end has hung up and the slot is empty,
// Recv completes with *ok set to false instead.
func (r *Receiver[T]) Recv(dst *T, ok *bool) Operation {
	var sig Signal
	return func(t *Task) Result {
		h := r.h
		h.readWake = &sig
		t.Watch(&sig)
		if h.occupied {
			h.readWake = nil
			v := h.value
			var zero T
			h.occupied, h.value = false, zero
			fire(&h.writeWake)
			fire(&h.flushWake)
			if dst != nil {
				*dst = v
			}
			setBool(ok, true)
			return t.End()
		}
		if h.senderGone {
			h.readWake = nil
			setBool(ok, false)
			return t.End()
		}
		return t.Await()
	}
}

// TryRecv takes a pending value without awaiting.
// On a take, it resumes a parked writer and flusher, exactly like a
// completed [Receiver.Recv].
func (r *Receiver[T]) TryRecv() (v T, ok bool) {
	h := r.h
	if !h.occupied {
		return v, false
	}
	v = h.value
	var zero T
	h.occupied, h.value = false, zero
	fire(&h.writeWake)
	fire(&h.flushWake)
	return v, true
}

// Closed reports whether the sending end has hung up and no value remains
// to be taken.
func (r *Receiver[T]) Closed() bool {
	h := r.h
	return h.senderGone && !h.occupied
}

// Hangup marks the receiving end as gone and resumes a parked writer and
// flusher, which then observe that delivery is no longer possible.
func (r *Receiver[T]) Hangup() {
	h := r.h
	h.receiverGone = true
	fire(&h.writeWake)
	fire(&h.flushWake)
}

func setBool(p *bool, v bool) {
	if p != nil {
		*p = v
	}
}
