package ingest

import (
	"context"
	"errors"
	"sync"
)

// Task is a unit of work run by a WorkerPool, typically one dictionary import.
type Task func(ctx context.Context) error

var (
	// ErrPoolClosed is returned by Submit once Wait has been called.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrNotRun is the outcome of a queued task the pool never started.
	ErrNotRun = errors.New("task not run")
)

// WorkerPool runs tasks on a fixed number of goroutines and keeps the
// outcome of every submitted task, indexed by submission order.
type WorkerPool struct {
	workers int
	tasks   chan queued
	quit    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup

	// closeMu guards closed and sends on tasks.
	closeMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	outcomes []error
	ctx      context.Context
}

type queued struct {
	slot int
	task Task
}

// NewWorkerPool creates a pool of workers goroutines whose queue holds up
// to queue pending tasks.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		workers: workers,
		tasks:   make(chan queued, queue),
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. They stop when ctx is done or Wait is called;
// tasks still queued after ctx is done are recorded with its cause.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	for range p.workers {
		p.wg.Add(1)
		go p.work(ctx)
	}
}

func (p *WorkerPool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-p.tasks:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				p.set(q.slot, context.Cause(ctx))
				continue
			}
			p.set(q.slot, q.task(ctx))
		}
	}
}

func (p *WorkerPool) set(slot int, err error) {
	p.mu.Lock()
	p.outcomes[slot] = err
	p.mu.Unlock()
}

// Submit queues task. It blocks while the queue is full and returns early
// with ctx's error or ErrPoolClosed. A failed submission still takes a slot
// so outcomes stay aligned with the caller's submission order.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	p.mu.Lock()
	slot := len(p.outcomes)
	p.outcomes = append(p.outcomes, nil)
	p.mu.Unlock()

	err := ErrPoolClosed
	if !p.closed {
		select {
		case p.tasks <- queued{slot: slot, task: task}:
			return nil
		case <-p.quit:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	p.set(slot, err)
	return err
}

// Wait stops accepting tasks, waits for the workers to finish and returns
// the outcome of every submitted task. It may be called more than once.
func (p *WorkerPool) Wait() []error {
	// Release blocked submitters before taking the write lock.
	p.stop.Do(func() { close(p.quit) })
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.closeMu.Unlock()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	notRun := ErrNotRun
	if p.ctx != nil && p.ctx.Err() != nil {
		notRun = context.Cause(p.ctx)
	}
	for q := range p.tasks {
		p.outcomes[q.slot] = notRun
	}
	return append([]error(nil), p.outcomes...)
}
