package pagepool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"zhcrawler/pkg/logger"
	"zhcrawler/pkg/throttle"
	"zhcrawler/pkg/zhihu"
)

// MaxWorkers bounds how many pages are fetched at once
const MaxWorkers = 5

// Job is one page to fetch and persist
type Job struct {
	Page zhihu.Page
}

// Result is the outcome of a Job. A failed job never stops the pool.
type Result struct {
	Job      Job
	Success  bool
	Error    error
	Duration time.Duration
	Items    int
	Path     string
}

// PageFetcher fetches one page of the listing
type PageFetcher interface {
	FetchPage(ctx context.Context, page zhihu.Page) (*zhihu.PageResponse, error)
}

// SnapshotWriter persists a page's items
type SnapshotWriter interface {
	SaveSnapshot(items []json.RawMessage) (string, error)
}

// Pool runs page jobs on a fixed number of workers
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     PageFetcher
	store       SnapshotWriter
	waiter      throttle.Waiter
	logger      logger.Logger
}

// New creates a pool bound to ctx. numWorkers is clamped to [1, MaxWorkers];
// a nil waiter means no delay between requests.
func New(
	ctx context.Context,
	numWorkers int,
	fetcher PageFetcher,
	store SnapshotWriter,
	waiter throttle.Waiter,
	log logger.Logger,
) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > MaxWorkers {
		numWorkers = MaxWorkers
	}
	if waiter == nil {
		waiter = throttle.Nop{}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		fetcher:     fetcher,
		store:       store,
		waiter:      waiter,
		logger:      log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.DebugWithFields("Starting page pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the job queue, waits for queued jobs to finish and then
// closes Results. Submit must not be called after Stop.
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Debug("Page pool stopped")
}

// Submit queues a job. It blocks while the queue is full and fails once the
// pool's context is done.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("page pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the result channel. It must be drained concurrently with
// Submit, and is closed by Stop.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

// Workers returns the number of workers
func (p *Pool) Workers() int {
	return p.numWorkers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	// Every queued job yields a result, including after cancellation
	for job := range p.jobQueue {
		p.resultQueue <- p.processJob(job, id)
	}
}

// processJob waits on the throttle, fetches the page and saves its items
func (p *Pool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	fields := map[string]interface{}{
		"worker_id": workerID,
		"offset":    job.Page.Offset,
	}

	if err := p.waiter.Wait(p.ctx); err != nil {
		result.Error = fmt.Errorf("wait cancelled: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	resp, err := p.fetcher.FetchPage(p.ctx, job.Page)
	logger.LogPageFetch(p.logger.WithField("worker_id", workerID), job.Page.Offset, time.Since(start), err)
	if err != nil {
		result.Error = fmt.Errorf("fetch failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Items = len(resp.Data)

	path, err := p.store.SaveSnapshot(resp.Data)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		p.logger.WithError(err).ErrorWithFields("Failed to save snapshot", fields)
		return result
	}

	result.Path = path
	result.Success = true
	result.Duration = time.Since(start)
	logger.LogSnapshotSaved(p.logger, path, result.Items)

	return result
}
