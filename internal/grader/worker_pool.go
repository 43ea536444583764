package grader

import (
	"runtime"
	"sync"
)

// WorkerPool manages a shared set of workers for per-channel and per-region
// work. Jobs are submitted through a Batch, so concurrent grading passes on
// the same pool each track their own completion.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		job()
	}
}

// NewBatch opens a job batch on the pool.
func (wp *WorkerPool) NewBatch() *Batch {
	return &Batch{pool: wp}
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	close(wp.jobQueue)
}

// Batch groups jobs belonging to one caller. Each batch owns its WaitGroup,
// so batches on a shared pool never interleave Add and Wait.
type Batch struct {
	pool *WorkerPool
	wg   sync.WaitGroup
}

// Submit adds a job to the batch
func (b *Batch) Submit(job func()) {
	b.wg.Add(1)
	b.pool.jobQueue <- func() {
		defer b.wg.Done()
		job()
	}
}

// Wait blocks until every job submitted to this batch has completed
func (b *Batch) Wait() {
	b.wg.Wait()
}
