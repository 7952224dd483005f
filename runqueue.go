package harness

import "sort"

// A runqueue holds the ready Tasks of an [Executor], ordered by path, FIFO
// among Tasks whose paths are equal.
//
// It is two slices over one backing array. head holds the front of the
// queue; tail grows from the start of the array into slots that pops have
// vacated. Both are sorted, and the queue reads head first, then tail.
type runqueue struct {
	head, tail []*Task
}

func (q *runqueue) Empty() bool {
	return len(q.head) == 0
}

// Push inserts t after every queued Task whose path sorts less than or
// equal to t's, keeping arrival order among equals.
func (q *runqueue) Push(t *Task) {
	nh, nt := len(q.head), len(q.tail)

	n := nh + nt

	i := sort.Search(n, func(i int) bool {
		if i < nh {
			return t.path < q.head[i].path
		}
		return t.path < q.tail[i-nh].path
	})

	if n == cap(q.tail) {
		// The array is full. Rebuild the queue, with t in place, on
		// a larger one; the append primes the capacity.
		s := append(q.tail[:n], nil)[:0]

		if i < nh {
			s = append(s, q.head[:i]...)
			s = append(s, t)
			s = append(s, q.head[i:]...)
			s = append(s, q.tail...)
		} else {
			s = append(s, q.head...)
			s = append(s, q.tail[:i-nh]...)
			s = append(s, t)
			s = append(s, q.tail[i-nh:]...)
		}

		q.head, q.tail = s, s[:0]

		return
	}

	if nh < cap(q.head) {
		// Room behind head.
		s := q.head[:nh+1]
		copy(s[i+1:], s[i:])
		s[i] = t
		q.head = s
		return
	}

	// Head butts the end of the array. The insertion goes through tail,
	// which grows into the popped slots in front of head; an insertion
	// point inside head bumps head's last Task out into tail.
	if i < nh {
		s := q.head
		last := s[nh-1]
		copy(s[i+1:], s[i:])
		s[i] = t
		t, i = last, nh
	}

	i -= nh

	s := q.tail[:nt+1]
	copy(s[i+1:], s[i:])
	s[i] = t
	q.tail = s
}

func (q *runqueue) Pop() *Task {
	t := q.head[0]
	q.head[0] = nil

	if len(q.head) > 1 {
		q.head = q.head[1:]
	} else {
		q.head, q.tail = q.tail, q.tail[:0]
	}

	return t
}
