package executor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned for work submitted after Close.
var ErrPoolClosed = errors.New("executor: pool closed")

// PanicError wraps a panic recovered inside a submitted task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Pool is a bounded worker pool draining a FIFO task queue. Tasks are plain
// closures; a task runs to completion on one worker goroutine and nothing
// preempts or cancels it once picked up.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	workers int
	group   *errgroup.Group
}

// NewPool starts a pool with the given number of workers.
// workers <= 0 selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		workers: workers,
		group:   &errgroup.Group{},
	}
	p.cond = sync.NewCond(&p.mu)

	for range workers {
		p.group.Go(p.work)
	}

	return p
}

// Workers reports the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) work() error {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		task()
	}
}

func (p *Pool) enqueue(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Close stops intake and waits for queued and in-flight tasks to finish.
// Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	return p.group.Wait()
}
