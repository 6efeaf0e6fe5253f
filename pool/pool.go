// Package pool runs tasks on a fixed set of worker goroutines fed by a shared
// FIFO queue.
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/fzft/go-mock-httpd/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrPoolStopped is returned by Enqueue once Shutdown has begun. The caller
// still owns the task.
var ErrPoolStopped = errors.New("enqueue on stopped pool")

// Task is a unit of work. A returned error is logged by the worker.
type Task interface {
	Run() error
}

// TaskFunc adapts a function to Task.
type TaskFunc func() error

func (f TaskFunc) Run() error {
	return f()
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	Workers  int
	Queued   int
	Executed int64
	Failed   int64
}

type Pool struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks *queue.Queue
	stop  bool

	workers int
	wg      sync.WaitGroup

	executed atomic.Int64
	failed   atomic.Int64
}

// New starts workers goroutines right away. With workers <= 0 nothing drains
// the queue until Shutdown, which then returns without running the backlog.
func New(workers int) *Pool {
	if workers < 0 {
		workers = 0
	}
	p := &Pool{
		tasks:   queue.New(),
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)

	log.Logger.Info("initializing worker pool", zap.Int("workers", workers))
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

// Enqueue appends task to the queue and wakes one idle worker.
func (p *Pool) Enqueue(task Task) error {
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		log.Logger.Error("enqueue on stopped pool")
		return ErrPoolStopped
	}
	p.tasks.Add(task)
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// QueueSize is the number of tasks not yet picked up by a worker.
func (p *Pool) QueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasks.Length()
}

// Shutdown stops accepting tasks and waits until every worker has drained the
// queue and exited. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	already := p.stop
	p.stop = true
	p.mu.Unlock()

	if !already {
		log.Logger.Info("shutting down worker pool", zap.Int("queued", p.QueueSize()))
	}
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  p.workers,
		Queued:   p.QueueSize(),
		Executed: p.executed.Load(),
		Failed:   p.failed.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log.Logger.Debug("worker started", zap.Int("worker", id))

	for {
		task, ok := p.next()
		if !ok {
			log.Logger.Debug("worker exiting", zap.Int("worker", id))
			return
		}
		p.execute(id, task)
	}
}

// next blocks until a task is available. ok is false once the pool is stopped
// and the queue is empty.
func (p *Pool) next() (task Task, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for !p.stop && p.tasks.Length() == 0 {
		p.cond.Wait()
	}
	if p.tasks.Length() == 0 {
		return nil, false
	}
	return p.tasks.Remove().(Task), true
}

func (p *Pool) execute(id int, task Task) {
	p.executed.Inc()

	defer func() {
		if r := recover(); r != nil {
			p.failed.Inc()
			log.Logger.Error("task panicked", zap.Int("worker", id), zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	if err := task.Run(); err != nil {
		p.failed.Inc()
		log.Logger.Error("task failed", zap.Int("worker", id), zap.Error(err))
	}
}
