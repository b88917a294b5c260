package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	videorepos "github.com/uplas/uplas-backend/internal/data/repos/videojobs"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/httpx"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
	"github.com/uplas/uplas-backend/internal/utils"
)

// Runner drives one claimed job to a terminal state.
type Runner interface {
	Run(ctx context.Context, job *types.VideoJob) error
}

type Config struct {
	Concurrency   int
	ClaimInterval time.Duration
	// StaleAfter is how long a running job may go without a heartbeat before
	// another worker may reclaim it.
	StaleAfter time.Duration
	// OrphanCutoff bounds the boot-time sweep: any non-terminal job older
	// than this is failed outright.
	OrphanCutoff time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	maxDuration := time.Duration(utils.GetEnvAsInt("TTV_MAX_DURATION_SECONDS", 1800, log)) * time.Second
	return Config{
		Concurrency:   utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
		ClaimInterval: time.Duration(utils.GetEnvAsInt("WORKER_CLAIM_INTERVAL_SECONDS", 2, log)) * time.Second,
		StaleAfter:    time.Duration(utils.GetEnvAsInt("WORKER_STALE_AFTER_SECONDS", 300, log)) * time.Second,
		OrphanCutoff:  2 * maxDuration,
	}
}

// Pool claims pending video jobs and runs them on a fixed set of goroutines.
// Claims go through FOR UPDATE SKIP LOCKED, so pools on multiple instances
// share the queue without double-running a job.
type Pool struct {
	log    *logger.Logger
	cfg    Config
	jobs   videorepos.VideoJobRepo
	runner Runner

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewPool(baseLog *logger.Logger, cfg Config, jobs videorepos.VideoJobRepo, runner Runner) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 2 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	if cfg.OrphanCutoff <= 0 {
		cfg.OrphanCutoff = time.Hour
	}
	return &Pool{
		log:    baseLog.With("service", "WorkerPool"),
		cfg:    cfg,
		jobs:   jobs,
		runner: runner,
	}
}

// Start sweeps orphans left by a previous process, then launches the claim
// loops. It returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	swept, err := p.jobs.MarkOrphansFailed(ctx, nil, p.cfg.OrphanCutoff)
	if err != nil {
		return fmt.Errorf("orphan sweep: %w", err)
	}
	if swept > 0 {
		p.log.Warn("failed orphaned video jobs from a previous run", "count", swept)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Concurrency; i++ {
		workerID := i
		p.group.Go(func() error {
			p.loop(ctx, workerID)
			return nil
		})
	}
	p.log.Info("worker pool started", "concurrency", p.cfg.Concurrency)
	return nil
}

// Stop cancels the claim loops and waits for in-flight jobs to finish or
// fail. Jobs cut off mid-run are reclaimed later via the stale heartbeat path.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.group != nil {
		_ = p.group.Wait()
	}
	p.log.Info("worker pool stopped")
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.log.With("worker", workerID)

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.jobs.ClaimNextRunnable(ctx, nil, p.cfg.StaleAfter)
		if err != nil {
			log.Error("claiming video job", "error", err.Error())
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(httpx.JitterSleep(p.cfg.ClaimInterval)):
			}
			continue
		}

		log.Info("claimed video job", "job_id", job.ID.String(), "attempt", job.Attempts)
		p.runOne(ctx, log, job)
	}
}

// runOne isolates a single job execution; a panicking pipeline fails its job
// instead of taking the worker down.
func (p *Pool) runOne(ctx context.Context, log *logger.Logger, job *types.VideoJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("video job panicked", "job_id", job.ID.String(), "panic", fmt.Sprint(r))
			if err := p.jobs.UpdateFields(context.WithoutCancel(ctx), nil, job.ID, map[string]interface{}{
				"status":        types.VideoJobStatusFailed,
				"error_message": fmt.Sprintf("internal error: %v", r),
			}); err != nil {
				log.Error("marking panicked job failed", "job_id", job.ID.String(), "error", err.Error())
			}
		}
	}()

	if err := p.runner.Run(ctx, job); err != nil {
		log.Warn("video job finished with error", "job_id", job.ID.String(), "error", err.Error())
	}
}
