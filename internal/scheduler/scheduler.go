package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers a task on a standard five-field cron spec.
// Descriptors like @hourly and @every 6h are accepted as well.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	task   func(ctx context.Context)
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	entry  cron.EntryID
}

// New creates a scheduler for the given spec and task. The task receives
// a context that is canceled when the scheduler stops.
func New(spec string, task func(ctx context.Context), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:   spec,
		task:   task,
		logger: logger,
	}
}

// ValidateSpec reports whether spec parses as a standard cron expression.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// Start registers the task and begins ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	id, err := s.cron.AddFunc(s.spec, func() { s.task(s.ctx) })
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", s.spec, err)
	}
	s.entry = id
	s.cron.Start()

	s.logger.Info("scheduler started",
		"spec", s.spec,
		"next_run", s.cron.Entry(s.entry).Next,
	)
	return nil
}

// Stop cancels the task context and waits for an in-flight run to finish,
// up to the given context's deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
