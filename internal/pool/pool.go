package pool

import (
	"context"
	"log/slog"
	"runtime/pprof"
	"strconv"
	"sync"
)

// Task is a deferred unit of work. It captures its full execution context at
// dispatch time and returns nothing; results travel through side effects.
type Task func()

// Pool owns a fixed set of worker goroutines, each consuming one FIFO queue.
// A single mutex and condition variable coordinate all queues: workers wake on
// broadcast and re-check only their own queue, so spurious wakeups are
// harmless. The pool is not resizable after construction.
type Pool struct {
	mu      sync.Mutex
	wake    *sync.Cond
	queues  [][]Task
	running bool

	name   string
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates a pool with the given number of workers and starts them
// immediately. The pool accepts work until Stop is called.
//
// name is a diagnostic label only: it is attached to each worker goroutine as
// a pprof label and carried on log records and metrics. An empty name changes
// nothing functionally.
func New(workers int, name string, logger *slog.Logger) *Pool {
	p := newPool(workers, name, logger)
	p.start()
	return p
}

// newPool constructs the pool without starting workers. Split from New so
// tests can stage queue contents deterministically before the first pop.
func newPool(workers int, name string, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		queues:  make([][]Task, workers),
		running: true,
		name:    name,
		logger:  logger,
	}
	p.wake = sync.NewCond(&p.mu)

	// Touch the metric children so every series exists from startup.
	tasksDispatched.WithLabelValues(name)
	tasksRejected.WithLabelValues(name)
	tasksExecuted.WithLabelValues(name)
	taskPanics.WithLabelValues(name)
	for i := range p.queues {
		queueDepth.WithLabelValues(name, strconv.Itoa(i)).Set(0)
	}
	return p
}

// start launches one goroutine per queue.
func (p *Pool) start() {
	p.wg.Add(len(p.queues))
	for i := range p.queues {
		go p.worker(i)
	}
}

// Dispatch submits a task for asynchronous execution. It returns false, and
// the task is never enqueued, once Stop has been initiated; the caller keeps
// ownership of a rejected task. A true return guarantees the task executes
// exactly once before Stop completes.
func (p *Pool) Dispatch(task Task) bool {
	_, ok := p.dispatch(task)
	return ok
}

// dispatch appends the task to the queue with the minimum instantaneous
// length, ties broken by lowest index, and reports which queue was chosen.
// Queue length is a backlog count, not a measure of execution time: a worker
// stuck on a slow task still receives work while its queue stays short. That
// trade-off is deliberate; keep the selection rule as is.
func (p *Pool) dispatch(task Task) (int, bool) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		tasksRejected.WithLabelValues(p.name).Inc()
		return -1, false
	}

	target := 0
	for i := 1; i < len(p.queues); i++ {
		if len(p.queues[i]) < len(p.queues[target]) {
			target = i
		}
	}
	p.queues[target] = append(p.queues[target], task)
	depth := len(p.queues[target])
	p.mu.Unlock()

	// Broadcast rather than signal: every worker re-checks its own queue, so
	// waking all of them costs little and needs no per-queue condition.
	p.wake.Broadcast()

	tasksDispatched.WithLabelValues(p.name).Inc()
	queueDepth.WithLabelValues(p.name, strconv.Itoa(target)).Set(float64(depth))
	return target, true
}

// Stop shuts the pool down: no new tasks are accepted, every already-queued
// task still runs, and Stop blocks until all workers have terminated. The
// wait is unbounded; a task that never returns stalls shutdown forever.
// Safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.wake.Broadcast()
	p.wg.Wait()
}

// Workers returns the fixed worker count.
func (p *Pool) Workers() int {
	return len(p.queues)
}

// Running reports whether the pool still accepts dispatches.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// QueueLengths returns a snapshot of each queue's current backlog.
func (p *Pool) QueueLengths() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	lengths := make([]int, len(p.queues))
	for i, q := range p.queues {
		lengths[i] = len(q)
	}
	return lengths
}

// worker is the per-queue consumption loop. Under the shared lock: pop the
// front task if the queue is non-empty, wait on the condition if the queue is
// empty while running, and exit only when the queue is empty and the pool has
// stopped. Tasks execute with the lock released, so a slow task stalls only
// its own worker.
func (p *Pool) worker(i int) {
	defer p.wg.Done()

	if p.name != "" {
		labels := pprof.Labels("pool", p.name, "worker", strconv.Itoa(i))
		pprof.SetGoroutineLabels(pprof.WithLabels(context.Background(), labels))
	}

	for {
		p.mu.Lock()
		for len(p.queues[i]) == 0 && p.running {
			p.wake.Wait()
		}
		if len(p.queues[i]) == 0 {
			p.mu.Unlock()
			return
		}

		task := p.queues[i][0]
		p.queues[i][0] = nil // release the closure for GC
		p.queues[i] = p.queues[i][1:]
		depth := len(p.queues[i])
		p.mu.Unlock()

		queueDepth.WithLabelValues(p.name, strconv.Itoa(i)).Set(float64(depth))
		p.run(i, task)
	}
}

// run executes one task, recovering panics so a faulting task cannot kill its
// worker and silently shrink pool capacity.
func (p *Pool) run(i int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			taskPanics.WithLabelValues(p.name).Inc()
			p.logger.Error("task panicked",
				"pool", p.name,
				"worker", i,
				"panic", r,
			)
		}
	}()

	task()
	tasksExecuted.WithLabelValues(p.name).Inc()
}
