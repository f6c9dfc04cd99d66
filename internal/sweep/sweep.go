package sweep

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one run of a sweep.
type Job struct {
	Index  int
	RunID  string
	Params Params
}

// RunFunc builds a fresh graph for job, runs it and returns its result. It
// must not share mutable state with other jobs.
type RunFunc func(ctx context.Context, job Job) (*engine.Result, error)

// Outcome is the result of one job. Err holds the run's own failure; it does
// not stop the other jobs.
type Outcome struct {
	Job     Job
	Result  *engine.Result
	Err     error
	Elapsed time.Duration
}

// Options configures a sweep.
type Options struct {
	// Workers bounds the number of concurrent runs. Zero means GOMAXPROCS.
	Workers int
	Logger  *logger.Logger
	// OnDone is called after each job, from the job's goroutine.
	OnDone func(outcome Outcome)
}

// Jobs assigns run IDs to a list of parameter sets.
func Jobs(params []Params) []Job {
	jobs := make([]Job, len(params))
	for i, p := range params {
		jobs[i] = Job{Index: i, RunID: uuid.NewString(), Params: p}
	}

	return jobs
}

// Run executes every job and returns the outcomes in job order. It only
// returns an error when ctx is cancelled; outcomes of jobs that never started
// carry that error.
func Run(ctx context.Context, jobs []Job, fn RunFunc, opts Options) ([]Outcome, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	log := opts.Logger.Named("sweep")
	outcomes := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		outcomes[i] = Outcome{Job: job, Result: nil, Err: nil, Elapsed: 0}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].Err = errors.Wrap(errors.ErrCodeCancelled, "sweep cancelled", err)

				return outcomes[i].Err
			}

			start := time.Now()
			result, err := fn(gctx, job)

			outcomes[i].Result = result
			outcomes[i].Err = err
			outcomes[i].Elapsed = time.Since(start)

			if err != nil {
				log.Warn("Sweep run failed",
					zap.String("run_id", job.RunID),
					zap.String("params", job.Params.String()),
					zap.Error(err),
				)
			} else {
				log.Debug("Sweep run complete",
					zap.String("run_id", job.RunID),
					zap.String("params", job.Params.String()),
					zap.Duration("elapsed", outcomes[i].Elapsed),
				)
			}

			if opts.OnDone != nil {
				opts.OnDone(outcomes[i])
			}

			if errors.HasCode(err, errors.ErrCodeCancelled) {
				return err
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	return outcomes, nil
}
