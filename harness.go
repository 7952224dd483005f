package harness

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultDeadline bounds a [Run] that was given no [WithDeadline] option.
const DefaultDeadline = 2 * time.Second

type config struct {
	deadline time.Duration
	logger   zerolog.Logger
	spawner  func(e *Executor) Spawner
}

// An Option configures [Run].
type Option func(*config)

// WithDeadline bounds the whole run by d instead of [DefaultDeadline].
// A non-positive d expires immediately; such a run always fails.
func WithDeadline(d time.Duration) Option {
	return func(c *config) { c.deadline = d }
}

// WithLogger routes the run's debug and error records through l.
// Every record carries a "run" field with a fresh id, so that interleaved
// runs can be told apart.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSpawner replaces the default [Pool] behind the unit's [Context].
// The factory is handed the run's [Executor].
func WithSpawner(f func(e *Executor) Spawner) Option {
	return func(c *config) { c.spawner = f }
}

// Run wires a driver and a unit under test to the two ends of a fresh
// [Context]/[Handle] pair and works on both Operations, cooperatively and
// deterministically, on the calling goroutine, until one of them completes.
// Either one completing first is a pass; the run does not await the other.
//
// The whole run races a deadline. A run that reaches the deadline panics
// out of Run with a diagnostic: a stalled test must die loudly, not hang
// its suite. The deadline is raced as a peer of the two participants and
// is checked first, so when it expires in the same scheduling turn that
// a participant completes, the run still fails. Panics raised inside the
// driver or the unit, contract violations included, also surface out of
// Run.
//
// Since everything runs on the calling goroutine, driver and unit code may
// use the testing package's helpers directly.
func Run[D, M any](
	driver func(*Handle[D, M]) Operation,
	unit func(*Context[D, M]) Operation,
	opts ...Option,
) {
	cfg := config{
		deadline: DefaultDeadline,
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	logger := cfg.logger.With().Str("run", uuid.NewString()).Logger()

	e := new(Executor)

	wake := make(chan struct{}, 1)
	e.Autorun(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	var spawner Spawner
	if cfg.spawner != nil {
		spawner = cfg.spawner(e)
	} else {
		spawner = NewPool(e, PoolConfig{Logger: &logger})
	}

	ctx, handle := NewPair[D, M](spawner, logger)

	tm := NewTimer(e, cfg.deadline)
	defer tm.Stop()

	done := false

	logger.Debug().Dur("deadline", cfg.deadline).Msg("run starting")

	e.Spawn("harness", Select(
		tm.Done().Then(Do(func() {
			logger.Error().Dur("deadline", cfg.deadline).Msg("run timed out")
			panic("harness: test timed out instead of completing")
		})),
		driver(handle),
		unit(ctx),
	).Then(Do(func() { done = true })))

	for {
		e.Run()
		if done {
			logger.Debug().Msg("run completed")
			return
		}
		<-wake
	}
}
