package render

import (
	"context"
	"sync"
	"time"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/graph"
)

// Job encapsulates one asynchronous render.
type Job struct {
	ID       string
	Ctx      context.Context //nolint:containedctx // intentional for async jobs
	Pipeline *graph.Pipeline
	Opts     Options
	// ResultCh receives the outcome; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async render job.
type JobResult struct {
	JobID  string
	Result *core.RenderResult
	Err    error
}

// Pool renders queued jobs on a fixed set of workers.  Pipelines are
// immutable, so workers share them freely.
type Pool struct {
	renderer *Renderer
	queue    chan Job
	workers  int
	timeout  time.Duration

	wg       sync.WaitGroup
	once     sync.Once
	shutdown chan struct{}
}

// NewPool creates a Pool over r with the given worker count and queue depth.
func NewPool(r *Renderer, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		renderer: r,
		queue:    make(chan Job, queueSize),
		workers:  workers,
		shutdown: make(chan struct{}),
	}
}

// SetTimeout caps each job's render duration; zero means no limit.  Set
// before Start.
func (p *Pool) SetTimeout(d time.Duration) { p.timeout = d }

// Start launches the workers.  It is idempotent.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop shuts down all workers.  Queued but unstarted jobs are dropped.
func (p *Pool) Stop() {
	close(p.shutdown)
	p.wg.Wait()
}

// Submit enqueues a job.  Returns ErrQueueFull when the queue is saturated.
func (p *Pool) Submit(job Job) error {
	select {
	case p.queue <- job:
		return nil
	default:
		return apperrors.New(apperrors.CategoryRender, "submit", apperrors.ErrQueueFull)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.runJob(job)
		}
	}
}

func (p *Pool) runJob(job Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	result, err := p.renderer.Render(ctx, job.Pipeline, job.Opts)
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Result: result, Err: err}
	}
}

// RenderBatch renders independent pipelines concurrently (fan-out / fan-in).
// Results and errors are index-aligned with pipelines.
func (r *Renderer) RenderBatch(ctx context.Context, pipelines []*graph.Pipeline, opts Options) ([]*core.RenderResult, []error) {
	results := make([]*core.RenderResult, len(pipelines))
	errs := make([]error, len(pipelines))
	var wg sync.WaitGroup

	for i, p := range pipelines {
		wg.Add(1)
		go func(idx int, pl *graph.Pipeline) {
			defer wg.Done()
			res, err := r.Render(ctx, pl, opts)
			results[idx] = res
			errs[idx] = err
		}(i, p)
	}
	wg.Wait()
	return results, errs
}
