// Package worker runs background jobs on a bounded set of goroutines.
package worker

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Pool is a fixed-size goroutine pool with a bounded queue.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines draining a queue of the given capacity.
func NewPool(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{jobs: make(chan func(), queue)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

// Submit enqueues job without blocking. It returns false when the pool is closed or the queue is full.
func (p *Pool) Submit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for queued and running jobs to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		safeRun(job)
	}
}

func safeRun(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("background job panicked")
		}
	}()
	job()
}
