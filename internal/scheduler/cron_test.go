package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

func TestNewCronScheduler_Defaults(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, logging.NewNop(), Config{})
	defer s.shutdownCancel()

	if s.cron == nil {
		t.Fatal("expected a cron instance")
	}
	if s.cfg.RefreshSpec != "*/5 * * * *" {
		t.Fatalf("unexpected default refresh spec %q", s.cfg.RefreshSpec)
	}
	if s.cfg.JobTimeout != 2*time.Minute {
		t.Fatalf("unexpected default job timeout %v", s.cfg.JobTimeout)
	}
}

func TestCronScheduler_StartRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, logging.NewNop(), Config{RefreshSpec: "not a cron spec"})
	defer s.shutdownCancel()

	if err := s.Start(); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}

func TestWrapJob_RunsAndRecovers(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, logging.NewNop(), Config{JobTimeout: time.Second})
	defer s.shutdownCancel()

	var ran atomic.Bool
	s.wrapJob("probe", func(_ context.Context) error {
		ran.Store(true)
		return nil
	})()
	if !ran.Load() {
		t.Fatal("expected the wrapped job to run")
	}

	// Must not propagate.
	s.wrapJob("panicking probe", func(_ context.Context) error {
		panic("boom")
	})()

	s.wrapJob("failing probe", func(_ context.Context) error {
		return errors.New("refresh failed")
	})()
}

func TestWrapJob_CancelsOnStop(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, logging.NewNop(), Config{JobTimeout: time.Minute})

	jobStarted := make(chan struct{})
	jobCtxDone := make(chan struct{})
	go s.wrapJob("long probe", func(ctx context.Context) error {
		close(jobStarted)
		<-ctx.Done()
		close(jobCtxDone)
		return ctx.Err()
	})()

	<-jobStarted
	s.Stop()

	select {
	case <-jobCtxDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stop must cancel a running job")
	}
}
