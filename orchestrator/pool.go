package orchestrator

import (
	"sync"

	"github.com/pkg/errors"
)

// Pool is a bounded work queue backed by a fixed set of workers. Dispatch units run on
// the pool so that the event that triggered them returns without waiting for delivery.
// A synchronous pool runs jobs inline, which makes the fire-and-forget contract
// testable.
type Pool struct {
	jobs        chan func()
	wg          sync.WaitGroup
	synchronous bool
}

// NewPool starts a pool with the given number of workers and queue capacity.
func NewPool(workers, queueSize int, synchronous bool) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	pool := &Pool{
		jobs:        make(chan func(), queueSize),
		synchronous: synchronous,
	}
	if pool.synchronous {
		return pool
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			for job := range pool.jobs {
				job()
			}
		}()
	}

	return pool
}

// Submit hands a job to the pool without blocking. An error is returned when the queue
// is full.
func (p *Pool) Submit(job func()) error {
	if p.synchronous {
		job()
		return nil
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return errors.New("the dispatch queue is full")
	}
}

// Shutdown stops accepting jobs and waits for the in-flight ones to finish.
func (p *Pool) Shutdown() {
	if p.synchronous {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}
