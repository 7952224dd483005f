package harness

// NewQueue creates the two ends of an unbounded FIFO queue.
//
// A queue is the opposite of a handoff: where a handoff makes the producer
// wait for the consumer, a queue buffers without bound, so pushing never
// awaits. A [Context] emits its outbound messages over one.
//
// Both ends must be used on the same [Executor].
func NewQueue[T any]() (*QueueSender[T], *QueueReceiver[T]) {
	q := new(queue[T])
	return &QueueSender[T]{q}, &QueueReceiver[T]{q}
}

// Like a handoff, a queue remembers at most one read waker; registering
// another replaces it.
type queue[T any] struct {
	items    []T
	readWake *Signal
	closed   bool
	gone     bool
}

// A QueueSender is the producing end of a queue.
type QueueSender[T any] struct {
	q *queue[T]
}

// Push appends v and resumes a parked consumer. Push never awaits.
// It reports false, leaving the queue untouched, once the receiving end
// has hung up.
func (s *QueueSender[T]) Push(v T) bool {
	q := s.q
	if q.gone {
		return false
	}
	q.items = append(q.items, v)
	fire(&q.readWake)
	return true
}

// PushAll appends a batch of values, in order, and resumes a parked
// consumer. Like [QueueSender.Push], it reports false once the receiving
// end has hung up, in which case nothing is appended.
func (s *QueueSender[T]) PushAll(vs ...T) bool {
	q := s.q
	if q.gone {
		return false
	}
	q.items = append(q.items, vs...)
	fire(&q.readWake)
	return true
}

// Close marks the producing end as done. A parked consumer resumes, drains
// whatever remains, and then observes the queue as closed.
func (s *QueueSender[T]) Close() {
	q := s.q
	q.closed = true
	fire(&q.readWake)
}

// A QueueReceiver is the consuming end of a queue.
//
// A QueueReceiver is meant for a single consumer: at most one
// [QueueReceiver.Pop] should be in flight at a time.
type QueueReceiver[T any] struct {
	q *queue[T]
}

// Pop returns an [Operation] that awaits until a value is available, takes
// the oldest one, stores it through dst (when dst is not nil), and sets
// *ok to true. If the producing end has closed and the queue is drained,
// the Operation completes with *ok set to false instead.
//
// The read waker is registered before the queue is inspected, so a push
// that lands in between cannot be missed.
func (r *QueueReceiver[T]) Pop(dst *T, ok *bool) Operation {
	var sig Signal
	return func(t *Task) Result {
		q := r.q
		q.readWake = &sig
		t.Watch(&sig)
		if v, got := r.TryPop(); got {
			q.readWake = nil
			if dst != nil {
				*dst = v
			}
			setBool(ok, true)
			return t.End()
		}
		if q.closed {
			q.readWake = nil
			setBool(ok, false)
			return t.End()
		}
		return t.Await()
	}
}

// TryPop takes the oldest value without awaiting.
func (r *QueueReceiver[T]) TryPop() (v T, ok bool) {
	q := r.q
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Drained reports whether the producing end has closed and nothing remains
// to be taken.
func (r *QueueReceiver[T]) Drained() bool {
	q := r.q
	return q.closed && len(q.items) == 0
}

// Hangup marks the consuming end as gone. Further pushes are refused.
func (r *QueueReceiver[T]) Hangup() {
	r.q.gone = true
}
