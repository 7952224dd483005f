package harness

import (
	"path"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Default limits for a [Pool].
const (
	DefaultTaskLimit     = 64
	DefaultBlockingLimit = 8
)

// A Spawner starts background work on behalf of a unit under test.
//
// Spawn starts a named cooperative [Operation]. SpawnBlocking starts work
// that is allowed to block, off the [Executor] thread. Neither can fail:
// work is accepted unconditionally and runs as capacity permits.
type Spawner interface {
	Spawn(name string, op Operation)
	SpawnBlocking(name string, f func())
}

// PoolConfig configures a [Pool]. The zero value picks the defaults.
type PoolConfig struct {
	// TaskLimit bounds how many cooperative Operations spawned through
	// the Pool run at the same time. Excess ones await their turn on
	// a [Semaphore]. Defaults to [DefaultTaskLimit].
	TaskLimit int64

	// BlockingLimit bounds how many worker goroutines run blocking work
	// at the same time. Excess work queues up. Defaults to
	// [DefaultBlockingLimit].
	BlockingLimit int

	// Logger receives debug records of everything spawned. Defaults to
	// a no-op logger.
	Logger *zerolog.Logger
}

// A Pool is the default [Spawner]. Cooperative Operations run as root
// Tasks on the Pool's [Executor], throttled by a [Semaphore]; blocking
// work runs on a bounded set of worker goroutines fed from a FIFO queue.
//
// A [WaitGroup] tracks everything spawned, so that a unit can await its
// own background work with [Pool.Quiesce].
type Pool struct {
	e   *Executor
	sem *Semaphore
	wg  WaitGroup
	log zerolog.Logger

	g       errgroup.Group
	mu      sync.Mutex
	jobHead *job
	jobTail *job
	workers int
	limit   int
}

type job struct {
	name string
	f    func()
	next *job
}

// NewPool creates a [Pool] spawning onto e.
func NewPool(e *Executor, cfg PoolConfig) *Pool {
	if cfg.TaskLimit <= 0 {
		cfg.TaskLimit = DefaultTaskLimit
	}
	if cfg.BlockingLimit <= 0 {
		cfg.BlockingLimit = DefaultBlockingLimit
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Pool{
		e:     e,
		sem:   NewSemaphore(cfg.TaskLimit),
		log:   logger,
		limit: cfg.BlockingLimit,
	}
}

// Spawn starts op as a root [Task] named name, throttled by the Pool's
// [Semaphore].
//
// One should only call this method in an [Operation] function.
func (p *Pool) Spawn(name string, op Operation) {
	p.wg.Add(1)
	p.e.Spawn(path.Join("pool", name),
		Chain(p.sem.Acquire(1), op).Then(Do(func() {
			p.sem.Release(1)
			p.wg.Done()
		})))
	p.log.Debug().Str("task", name).Msg("spawned a task")
}

// SpawnBlocking queues f to run on a worker goroutine, growing the worker
// set up to the configured limit. SpawnBlocking itself never blocks.
//
// One should only call this method in an [Operation] function.
func (p *Pool) SpawnBlocking(name string, f func()) {
	p.wg.Add(1)
	j := &job{name: name, f: f}

	p.mu.Lock()
	if p.jobTail != nil {
		p.jobTail.next = j
	} else {
		p.jobHead = j
	}
	p.jobTail = j
	grow := p.workers < p.limit
	if grow {
		p.workers++
	}
	p.mu.Unlock()

	if grow {
		p.g.Go(func() error {
			p.work()
			return nil
		})
	}
	p.log.Debug().Str("task", name).Msg("queued blocking work")
}

func (p *Pool) work() {
	for {
		p.mu.Lock()
		j := p.jobHead
		if j == nil {
			p.workers--
			p.mu.Unlock()
			return
		}
		p.jobHead = j.next
		if p.jobHead == nil {
			p.jobTail = nil
		}
		p.mu.Unlock()

		j.f()

		// Re-enter the Executor to settle the books on its thread.
		p.e.Spawn(path.Join("pool", j.name), Do(p.wg.Done))
	}
}

// Quiesce returns an [Operation] that awaits until everything spawned
// through p so far has completed.
func (p *Pool) Quiesce() Operation {
	return p.wg.Await()
}

// Wait blocks until all worker goroutines have drained their queue and
// exited. It does not wait for cooperative Operations; those live on the
// Executor. Wait always returns nil; the error return mirrors the errgroup
// it is built on.
func (p *Pool) Wait() error {
	return p.g.Wait()
}
