// Package worker runs detection over many documents: fixed-size batches
// dispatched concurrently, paced by a rate limiter and an inter-batch delay.
package worker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool manages a pool of workers that execute jobs concurrently
type Pool struct {
	workers       int
	jobQueue      chan indexedJob
	results       chan indexedResult
	wg            sync.WaitGroup
	ctx           context.Context
	cancelFunc    context.CancelFunc
	closeOnce     sync.Once
	submitted     atomic.Int64
	collected     []indexedResult
	collectorDone chan struct{}
}

// NewPool creates a pool with the given number of workers. Jobs see a
// context derived from ctx; Shutdown cancels it.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:       workers,
		jobQueue:      make(chan indexedJob, workers*2),
		results:       make(chan indexedResult, workers*2),
		ctx:           ctx,
		cancelFunc:    cancel,
		collectorDone: make(chan struct{}),
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results as they arrive so Submit never waits on Wait
func (p *Pool) collect() {
	defer close(p.collectorDone)
	for r := range p.results {
		p.collected = append(p.collected, r)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := ij.job.Execute(p.ctx)
			select {
			case p.results <- indexedResult{index: ij.index, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns without queuing once the pool is shut down.
func (p *Pool) Submit(job Job) {
	index := int(p.submitted.Add(1)) - 1
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- indexedJob{index: index, job: job}:
	}
}

// Wait waits for all submitted jobs and returns their results in
// submission order. Jobs dropped by a shutdown have no result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)

	p.wg.Wait()
	p.closeResults()
	<-p.collectorDone

	collected := p.collected
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	results := make([]Result, len(collected))
	for i, r := range collected {
		results[i] = r.result
	}
	return results
}

// Shutdown shuts down the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// RunAll executes jobs on a pool of the given size and waits for all of them
func RunAll(ctx context.Context, workers int, jobs []Job) []Result {
	if len(jobs) == 0 {
		return []Result{}
	}

	pool := NewPool(ctx, workers)
	pool.Start()
	for _, job := range jobs {
		pool.Submit(job)
	}
	return pool.Wait()
}
