package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/hitster/internal/config"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/phrazzld/hitster/internal/redact"
	"github.com/phrazzld/hitster/internal/store"
)

// PoolConfig holds configuration options for the worker pool
type PoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// PollInterval is how long an idle worker waits before claiming again.
	PollInterval time.Duration

	// StuckJobAge defines how long a job can be processing before the
	// sweep fails it as abandoned. Zero disables the sweep.
	StuckJobAge time.Duration

	// StuckCheckInterval defines how often to sweep.
	// If zero, defaults to 5 minutes.
	StuckCheckInterval time.Duration
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		WorkerCount:        2,
		PollInterval:       2 * time.Second,
		StuckJobAge:        30 * time.Minute,
		StuckCheckInterval: 5 * time.Minute,
	}
}

// PoolConfigFrom builds a PoolConfig from the worker settings.
func PoolConfigFrom(cfg config.WorkerConfig) PoolConfig {
	return PoolConfig{
		WorkerCount:        cfg.Count,
		PollInterval:       cfg.PollInterval,
		StuckJobAge:        cfg.StuckJobAge,
		StuckCheckInterval: cfg.StuckCheckInterval,
	}
}

// Pool runs worker goroutines that claim jobs from a JobStore and dispatch
// them to registered handlers. Start and Stop may each be called once.
type Pool struct {
	jobs     store.JobStore
	registry *Registry
	config   PoolConfig
	logger   *slog.Logger

	// ctx carries the values of the Start context without its cancellation,
	// so a claimed job always runs to completion.
	ctx      context.Context
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	fatal    chan error
}

// NewPool creates a worker pool with the specified configuration
func NewPool(jobs store.JobStore, registry *Registry, config PoolConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "worker_pool"))

	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", config.WorkerCount),
			slog.Int("default_count", 1))
		config.WorkerCount = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPoolConfig().PollInterval
	}
	if config.StuckCheckInterval <= 0 {
		config.StuckCheckInterval = DefaultPoolConfig().StuckCheckInterval
	}

	return &Pool{
		jobs:     jobs,
		registry: registry,
		config:   config,
		logger:   logger,
		ctx:      context.Background(),
		stopCh:   make(chan struct{}),
		fatal:    make(chan error, 1),
	}
}

// Fatal delivers the first fatal error seen by any worker: a job kind with
// no handler, or a state transition the store rejected. The process should
// stop the pool and exit.
func (p *Pool) Fatal() <-chan error {
	return p.fatal
}

// Start validates the registry, sweeps abandoned jobs once, then launches the
// workers and the periodic sweep.
func (p *Pool) Start(ctx context.Context) error {
	if err := p.registry.Validate(domain.JobKinds()...); err != nil {
		return err
	}
	p.ctx = context.WithoutCancel(ctx)

	if p.config.StuckJobAge > 0 {
		if _, err := p.SweepStale(p.ctx); err != nil {
			return fmt.Errorf("failed to sweep abandoned jobs: %w", err)
		}
		p.wg.Add(1)
		go p.staleMonitor()
	}

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("worker pool started",
		slog.Int("workers", p.config.WorkerCount),
		slog.Duration("poll_interval", p.config.PollInterval))
	return nil
}

// Stop stops claiming new jobs and waits for in-flight jobs to finish.
// If ctx ends first, Stop returns its error while jobs keep running.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Error("worker pool drain timed out", slog.String("error", ctx.Err().Error()))
		return fmt.Errorf("drain worker pool: %w", ctx.Err())
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With(slog.Int("worker_id", id))
	log.Debug("starting worker")

	for {
		select {
		case <-p.stopCh:
			log.Debug("stopping worker")
			return
		default:
		}

		job, err := p.jobs.ClaimNext(p.ctx)
		if err != nil {
			log.Error("failed to claim job", slog.String("error", err.Error()))
		}
		if job == nil {
			if !p.idle() {
				log.Debug("stopping worker")
				return
			}
			continue
		}

		p.process(job, id)
	}
}

// idle waits one poll interval. It returns false if the pool is stopping.
func (p *Pool) idle() bool {
	timer := time.NewTimer(p.config.PollInterval)
	defer timer.Stop()
	select {
	case <-p.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// process handles execution of a single claimed job
func (p *Pool) process(job *domain.Job, workerID int) {
	log := p.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("job_kind", string(job.Kind)),
		slog.Int("worker_id", workerID),
	)
	ctx := logger.WithLogger(p.ctx, log)

	handler, ok := p.registry.Lookup(job.Kind)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownJobKind, job.Kind)
		log.Error("claimed job of unknown kind", slog.String("error", err.Error()))
		p.record(log, p.jobs.Fail(ctx, job.ID, redact.Detail(err)))
		p.signalFatal(err)
		return
	}

	log.Info("processing job")
	start := time.Now()

	result, err := execute(ctx, handler, job)
	if err != nil {
		detail := redact.Detail(err)
		log.Warn("job failed",
			slog.String("error", detail),
			slog.Duration("duration", time.Since(start)))
		p.record(log, p.jobs.Fail(ctx, job.ID, detail))
		return
	}

	log.Info("job completed", slog.Duration("duration", time.Since(start)))
	p.record(log, p.jobs.Complete(ctx, job.ID, result))
}

// record classifies the outcome of a Complete or Fail call.
func (p *Pool) record(log *slog.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrNotFound):
		log.Error("store rejected job outcome", slog.String("error", err.Error()))
		p.signalFatal(err)
	default:
		// The transition did not commit; the job stays processing until the sweep.
		log.Error("failed to record job outcome", slog.String("error", err.Error()))
	}
}

func (p *Pool) signalFatal(err error) {
	select {
	case p.fatal <- err:
	default:
	}
}

func execute(ctx context.Context, h Handler, job *domain.Job) (result domain.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.Execute(ctx, job)
}

// SweepStale fails every processing job claimed more than StuckJobAge ago and
// returns how many it failed. Jobs that finish during the sweep are skipped.
func (p *Pool) SweepStale(ctx context.Context) (int, error) {
	age := p.config.StuckJobAge
	stale, err := p.jobs.ListStale(ctx, age)
	if err != nil {
		return 0, err
	}

	detail := fmt.Sprintf("abandoned: worker did not finish within %s", age)
	failed := 0
	for _, job := range stale {
		log := p.logger.With(
			slog.String("job_id", job.ID.String()),
			slog.String("job_kind", string(job.Kind)))

		err := p.jobs.Fail(ctx, job.ID, detail)
		switch {
		case err == nil:
			failed++
			log.Warn("failed abandoned job")
		case errors.Is(err, store.ErrInvalidTransition):
			log.Debug("abandoned job finished before sweep")
		default:
			log.Error("failed to fail abandoned job", slog.String("error", err.Error()))
		}
	}

	if len(stale) > 0 {
		p.logger.Info("swept abandoned jobs",
			slog.Int("found", len(stale)),
			slog.Int("failed", failed))
	}
	return failed, nil
}

// staleMonitor periodically sweeps abandoned jobs until the pool stops
func (p *Pool) staleMonitor() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.StuckCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if _, err := p.SweepStale(p.ctx); err != nil {
				p.logger.Error("failed to check for abandoned jobs", slog.String("error", err.Error()))
			}
		}
	}
}
