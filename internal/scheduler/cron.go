// Package scheduler runs the periodic cache refresh in the background.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
	"github.com/rwrpulse/rwrpulse/internal/usecase"
)

type Config struct {
	// RefreshSpec is a standard 5-field cron expression.
	RefreshSpec string
	JobTimeout  time.Duration
}

type CronScheduler struct {
	cron    *cron.Cron
	refresh *usecase.RefreshService
	logger  *logging.Logger
	cfg     Config

	activeJobs     sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

func NewCronScheduler(refresh *usecase.RefreshService, logger *logging.Logger, cfg Config) *CronScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RefreshSpec == "" {
		cfg.RefreshSpec = "*/5 * * * *"
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &CronScheduler{
		// SkipIfStillRunning keeps slow upstream cycles from piling up.
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		refresh:        refresh,
		logger:         logger,
		cfg:            cfg,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
}

func (s *CronScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.RefreshSpec, s.wrapJob("cache refresh", func(ctx context.Context) error {
		_, err := s.refresh.Refresh(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("schedule cache refresh %q: %w", s.cfg.RefreshSpec, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started", "refresh_spec", s.cfg.RefreshSpec)
	return nil
}

// wrapJob bounds a job with the shutdown context plus a timeout and keeps a
// panic inside the job from taking down the scheduler goroutine.
func (s *CronScheduler) wrapJob(name string, job func(context.Context) error) func() {
	return func() {
		s.activeJobs.Add(1)
		defer s.activeJobs.Done()

		ctx, cancel := context.WithTimeout(s.shutdownCtx, s.cfg.JobTimeout)
		defer cancel()

		started := time.Now()
		s.logger.InfoContext(ctx, "scheduled job started", "job", name)

		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(ctx, "scheduled job panicked", "job", name, "panic", rec)
			}
		}()

		err := job(ctx)
		duration := time.Since(started)

		switch {
		case err != nil:
			s.logger.ErrorContext(ctx, "scheduled job failed", "job", name, "duration", duration, "error", err)
		case ctx.Err() == context.DeadlineExceeded:
			s.logger.WarnContext(ctx, "scheduled job timed out", "job", name, "timeout", s.cfg.JobTimeout)
		default:
			s.logger.InfoContext(ctx, "scheduled job finished", "job", name, "duration", duration)
		}
	}
}

// Stop halts scheduling, cancels running jobs, and waits briefly for them to
// drain.
func (s *CronScheduler) Stop() {
	stopCtx := s.cron.Stop()
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.activeJobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("cron scheduler stopped")
	case <-stopCtx.Done():
		s.logger.Info("cron scheduler stopped")
	case <-time.After(30 * time.Second):
		s.logger.Warn("timed out waiting for scheduled jobs to drain")
	}
}
