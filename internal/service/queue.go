package service

import (
	"fmt"
	"log/slog"
	"sync"
)

// Operation is one unit of queued work.
type Operation func() (any, error)

// Pending is the settlement handle for one enqueued operation.
type Pending struct {
	op     Operation
	done   chan struct{}
	result any
	err    error
}

// Wait blocks until the operation settles and returns its outcome. Enqueued
// operations cannot be cancelled; the operation itself owns any timeout.
func (p *Pending) Wait() (any, error) {
	<-p.done
	return p.result, p.err
}

// Queue runs enqueued operations strictly one at a time, in arrival order,
// across all callers. Serializing every network operation is deliberate
// backpressure: overlapping calls against the platforms trip their
// anti-automation defenses, and a strict order keeps logs readable.
type Queue struct {
	tasks  chan *Pending
	logger *slog.Logger

	closeOnce sync.Once
	stopped   chan struct{}
}

// NewQueue starts the single worker.
func NewQueue(logger *slog.Logger) *Queue {
	q := &Queue{
		tasks:   make(chan *Pending, 128),
		logger:  logger,
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue appends op to the pending list. A failing operation settles its
// own caller with the error and never halts subsequent operations.
func (q *Queue) Enqueue(op Operation) *Pending {
	p := &Pending{op: op, done: make(chan struct{})}
	q.tasks <- p
	return p
}

// Close stops accepting work and waits for everything already enqueued to
// settle.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.tasks)
	})
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)
	for p := range q.tasks {
		p.result, p.err = runOp(p.op)
		if p.err != nil {
			q.logger.Warn("queued task failed", slog.Any("error", p.err))
		}
		close(p.done)
	}
}

// runOp contains a panicking operation so one broken task cannot take the
// worker down with it.
func runOp(op Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return op()
}
