// Package executor implements spec.md §4.5: a single-consumer FIFO task
// queue with a pre-ready buffer, guaranteeing operation ordering and
// decoupling load from use.
//
// The source this spec was distilled from models tasks as callback-passing
// closures; re-expressed in Go, a Task is simply a function that runs to
// completion and returns an error — "the supplied completion callback is
// invoked" and "fn returns" collapse into the same event once I/O is
// expressed as ordinary blocking calls on the single consumer goroutine
// (spec.md §9's design note on async/callback control flow). The
// buffering/ready state machine itself mirrors the mutex+condition-variable
// idiom of processmgr's slotPool: a single mutex guards the state, a
// sync.Cond wakes the consumer goroutine when work becomes available.
package executor

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TaskFunc is the unit of work the Executor serializes.
type TaskFunc func() error

type task struct {
	fn   TaskFunc
	done chan error
}

// Executor is spec.md §4.5's single-consumer FIFO queue. It starts in the
// buffering state; Push calls accumulate in an internal buffer until
// ProcessBuffer flips it to ready and drains the buffer, in order, onto the
// live queue.
type Executor struct {
	log *zap.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	ready bool

	buffer []*task
	queue  []*task
}

// New constructs an Executor and starts its single consumer goroutine. The
// Executor begins in the buffering state.
func New(log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Executor{log: log.Named("executor")}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Push enqueues fn for execution. While the Executor is buffering, pushes
// accumulate in submission order unless force is true, in which case the
// task bypasses the buffer and joins the live queue immediately — the
// persistence layer's own writes (e.g. compaction during load) use force so
// they can run ahead of whatever a caller queued before load finished.
//
// The returned channel receives fn's result exactly once, after fn (or a
// recovered panic inside it) completes.
func (e *Executor) Push(fn TaskFunc, force bool) <-chan error {
	t := &task{fn: fn, done: make(chan error, 1)}

	e.mu.Lock()
	if e.ready || force {
		e.queue = append(e.queue, t)
	} else {
		e.buffer = append(e.buffer, t)
	}
	e.cond.Signal()
	e.mu.Unlock()

	return t.done
}

// ProcessBuffer flips the Executor from buffering to ready and drains the
// buffer onto the live queue in the exact order tasks were pushed. Calling
// it more than once is a no-op after the first call — spec.md §4.5 describes
// exactly two states, buffering and ready, with no path back.
func (e *Executor) ProcessBuffer() {
	e.mu.Lock()
	if e.ready {
		e.mu.Unlock()
		return
	}
	e.ready = true
	e.queue = append(e.queue, e.buffer...)
	e.buffer = nil
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Ready reports whether ProcessBuffer has run.
func (e *Executor) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *Executor) run() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 {
			e.cond.Wait()
		}
		t := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		err := e.runOne(t)
		// The completion signal is sent after runOne has already recovered
		// from any panic, so a misbehaving task can never stall the next
		// one — spec.md §4.5's exception-isolation requirement.
		t.done <- err
		close(t.done)
	}
}

func (e *Executor) runOne(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor: task panicked: %v", r)
			e.log.Error("recovered panic in task", zap.Any("panic", r))
		}
	}()
	return t.fn()
}
