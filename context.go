package harness

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// RecvStatus is the outcome of a non-awaiting receive.
type RecvStatus int

const (
	// RecvOK means a value was taken.
	RecvOK RecvStatus = iota
	// RecvEmpty means nothing was pending at the time; more may come.
	RecvEmpty
	// RecvClosed means the other end is gone and nothing remains.
	RecvClosed
)

func (s RecvStatus) String() string {
	switch s {
	case RecvOK:
		return "ok"
	case RecvEmpty:
		return "empty"
	case RecvClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// A Context is the execution context a unit under test runs against: the
// unit's view of a [Context]/[Handle] pair.
//
// Directives of type D arrive from the driver over a rendezvous channel,
// one at a time. Messages of type M leave for the driver over an unbounded
// queue, so emitting never awaits. Background work is started through the
// pair's [Spawner].
//
// A Context must be used on the same [Executor] as its [Handle].
type Context[D, M any] struct {
	rx      *Receiver[D]
	out     *QueueSender[M]
	spawner Spawner
	log     zerolog.Logger
}

// A Handle drives a unit under test: the driver's view of a
// [Context]/[Handle] pair.
//
// Directives sent through a Handle rendezvous with the unit: a send
// completes only once the unit has taken the directive. Messages emitted
// by the unit are collected from the Handle in FIFO order.
type Handle[D, M any] struct {
	tx  *Sender[D]
	in  *QueueReceiver[M]
	log zerolog.Logger
}

// NewPair creates a connected [Context] and [Handle].
//
// The unit side spawns background work through spawner. Both sides log
// their traffic to logger at debug level.
func NewPair[D, M any](spawner Spawner, logger zerolog.Logger) (*Context[D, M], *Handle[D, M]) {
	tx, rx := NewHandoff[D]()
	outTx, outRx := NewQueue[M]()
	ctx := &Context[D, M]{rx: rx, out: outTx, spawner: spawner, log: logger}
	h := &Handle[D, M]{tx: tx, in: outRx, log: logger}
	return ctx, h
}

// TryRecv takes a pending directive without awaiting.
//
// The status is [RecvOK] when a directive was taken, [RecvClosed] when the
// driver dropped its [Handle] and no directive remains, and [RecvEmpty]
// when there is nothing right now but the driver is still around.
func (c *Context[D, M]) TryRecv() (d D, _ RecvStatus) {
	if v, ok := c.rx.TryRecv(); ok {
		c.log.Debug().Msg("unit took a directive")
		return v, RecvOK
	}
	if c.rx.Closed() {
		return d, RecvClosed
	}
	return d, RecvEmpty
}

// Recv returns an [Operation] that awaits the next directive from the
// driver and stores it through dst.
//
// When the driver has dropped its [Handle] and no directive remains, the
// Operation completes storing [ErrPeerClosed] through errp; otherwise it
// stores nil. Taking the directive is what completes the driver's pending
// [Handle.Send].
func (c *Context[D, M]) Recv(dst *D, errp *error) Operation {
	var ok bool
	return c.rx.Recv(dst, &ok).Then(Do(func() {
		if !ok {
			setErr(errp, errors.WithMessage(ErrPeerClosed, "recv directive"))
			return
		}
		setErr(errp, nil)
		c.log.Debug().Msg("unit received a directive")
	}))
}

// Send emits one message to the driver. It never awaits: the outbound
// queue is unbounded.
//
// Send panics if the driver has dropped its [Handle]; a unit emitting into
// the void is a broken test setup, not a condition to handle.
func (c *Context[D, M]) Send(m M) {
	if !c.out.Push(m) {
		panic("harness(Context): driver handle no longer live")
	}
	c.log.Debug().Msg("unit emitted a message")
}

// SendAll emits a batch of messages to the driver, in order. Like
// [Context.Send], it never awaits and panics if the driver has dropped
// its [Handle].
func (c *Context[D, M]) SendAll(ms ...M) {
	if !c.out.PushAll(ms...) {
		panic("harness(Context): driver handle no longer live")
	}
	c.log.Debug().Int("count", len(ms)).Msg("unit emitted a batch of messages")
}

// Spawn starts op as named background work through the pair's [Spawner].
// It cannot fail.
func (c *Context[D, M]) Spawn(name string, op Operation) {
	c.log.Debug().Str("task", name).Msg("unit spawned a task")
	c.spawner.Spawn(name, op)
}

// SpawnBlocking starts f, which is allowed to block, through the pair's
// [Spawner]. It cannot fail.
func (c *Context[D, M]) SpawnBlocking(name string, f func()) {
	c.log.Debug().Str("task", name).Msg("unit spawned blocking work")
	c.spawner.SpawnBlocking(name, f)
}

// Close hangs up the unit side of the pair and resumes the driver:
// a pending [Handle.Send] completes undelivered with [ErrPeerClosed], and
// a [Handle.Recv] drains the remaining messages before reporting the same.
//
// A unit does not normally call Close; completing its [Operation] is the
// usual way out. Close is for tests that exercise how a driver observes
// a vanished unit.
func (c *Context[D, M]) Close() {
	c.log.Debug().Msg("unit hung up")
	c.rx.Hangup()
	c.out.Close()
}

// Send returns an [Operation] that delivers directive d to the unit and
// completes only after the unit has taken it. This is the rendezvous:
// completion of the send is proof the unit saw the directive.
//
// When the unit has hung up before taking d, the Operation completes
// undelivered, storing [ErrPeerClosed] through errp; otherwise it stores
// nil.
func (h *Handle[D, M]) Send(d D, errp *error) Operation {
	var delivered bool
	return h.tx.Send(d, &delivered).Then(Do(func() {
		if !delivered {
			setErr(errp, errors.WithMessage(ErrPeerClosed, "send directive"))
			return
		}
		setErr(errp, nil)
		h.log.Debug().Msg("driver delivered a directive")
	}))
}

// Recv returns an [Operation] that awaits the next message emitted by the
// unit and stores it through dst.
//
// When the unit has closed its [Context] and every remaining message has
// been drained, the Operation completes storing [ErrPeerClosed] through
// errp; otherwise it stores nil.
func (h *Handle[D, M]) Recv(dst *M, errp *error) Operation {
	var ok bool
	return h.in.Pop(dst, &ok).Then(Do(func() {
		if !ok {
			setErr(errp, errors.WithMessage(ErrPeerClosed, "recv message"))
			return
		}
		setErr(errp, nil)
		h.log.Debug().Msg("driver received a message")
	}))
}

// TryRecv takes a pending message from the unit without awaiting.
//
// The status is [RecvOK] when a message was taken, [RecvClosed] when the
// unit closed its [Context] and the queue is drained, and [RecvEmpty]
// when there is nothing right now.
func (h *Handle[D, M]) TryRecv() (m M, _ RecvStatus) {
	if v, ok := h.in.TryPop(); ok {
		h.log.Debug().Msg("driver took a message")
		return v, RecvOK
	}
	if h.in.Drained() {
		return m, RecvClosed
	}
	return m, RecvEmpty
}

// Close drops the Handle and resumes the unit: a pending [Context.Recv]
// completes with [ErrPeerClosed] once no directive remains, and any further
// [Context.Send] panics.
func (h *Handle[D, M]) Close() {
	h.log.Debug().Msg("driver dropped its handle")
	h.tx.Hangup()
	h.in.Hangup()
}

func setErr(p *error, err error) {
	if p != nil {
		*p = err
	}
}
