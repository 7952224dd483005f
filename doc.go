// Package harness drives message-passing units under test, cooperatively
// and deterministically.
//
// A unit under test is an actor: it receives directives, does some work,
// possibly spawns more work, and emits messages. Exercising one from an
// ordinary Go test tends to drown the interesting ordering questions in
// goroutines and channel plumbing. This package takes the opposite route:
// everything runs on a single-threaded [Executor], progress happens only
// at explicit suspension points, and the order of execution is a function
// of the test, not of the scheduler.
//
// # Tasks and the Executor
//
// An [Executor] runs [Task]s, which are cooperative and stackless. A Task
// works on an [Operation] function; the returned [Result] either ends the
// Task, yields it awaiting some [Event]s, or switches it to another
// Operation, the way a state machine switches states. Tasks resume when
// an Event they watch notifies: a [Signal] fires, a [State] changes,
// a [Timer] expires, a [WaitGroup] drains.
//
// Because only one Task runs at a time and ready Tasks run in a fixed
// order, a test that interleaves sends, receives and deadlines observes
// the same interleaving on every run.
//
// # The rendezvous channel
//
// Directives travel over a channel with a capacity of one (see
// [NewHandoff]) that completes a send only after the matching read: the
// rendezvous. Completion of [Sender.Send] is proof the other side took the
// value, which is exactly the backpressure a driver wants when scripting
// a unit: deliver, know it arrived, then assert.
//
// Each role parks at most one waiter on the slot; registering another
// replaces the one before it. A waiter registers before it inspects the
// slot, so a value that lands in between cannot slip by unobserved.
//
// # Contexts and Handles
//
// [NewPair] connects a [Context], the unit's side, with a [Handle], the
// driver's side. The unit receives directives from the Context and emits
// messages through it without awaiting, over an unbounded queue (see
// [NewQueue]); the driver sends directives through the Handle at
// rendezvous pace and collects messages in FIFO order. When one side goes
// away, the other observes [ErrPeerClosed] on its next receive, or
// completes its pending send undelivered.
//
// Units start background work through a [Spawner]; the default [Pool]
// throttles cooperative work with a [Semaphore], runs blocking work on
// worker goroutines, and can report quiescence.
//
// # Deadlines
//
// [Run] races the driver, the unit, and a deadline. The first participant
// to complete passes the test; the deadline firing fails it with a panic,
// because a stalled test that quietly hangs is the worst outcome a harness
// can allow. The same priority applies to [Operation.WithTimeout]: the
// deadline is inspected first on every resumption, so when both outcomes
// are available at once, timed out wins. Timing out is reported as an
// outcome, not an error.
//
// # Panic Propagation
//
// A panic inside any Task is caught by the [Executor], which restores its
// own invariants and then rethrows from [Executor.Run] with the panic
// value and stack attached. Under [Run], everything executes on the
// calling goroutine, so contract violations, deadline failures and plain
// bugs all land in the test that caused them.
//
// # Single-Use Operations
//
// Operations returned by functions and methods of this package may carry
// state across resumptions. They are single-use: construct a new one for
// each execution. A unit that repeats rounds uses [Loop], which calls its
// factory again for every round, keeping each round's state fresh.
package harness
