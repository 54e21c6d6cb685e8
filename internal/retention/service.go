// Package retention prunes conversations that have been idle longer than
// the configured retention window.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// DefaultSchedule runs the prune once a day at midnight.
const DefaultSchedule = "@daily"

// Pruner deletes sessions last updated before cutoff, skipping any key for
// which skip returns true.
type Pruner interface {
	Prune(cutoff time.Time, skip func(key string) bool) (int, error)
}

// Service runs the prune on a cron schedule.
type Service struct {
	store    Pruner
	maxAge   time.Duration
	schedule robfigcron.Schedule
	expr     string
	busy     func(key string) bool
	now      func() time.Time
}

// NewService creates a Service. busy may be nil; when set, sessions it
// reports as busy are never pruned.
func NewService(store Pruner, maxAge time.Duration, expr string, busy func(key string) bool) (*Service, error) {
	if expr == "" {
		expr = DefaultSchedule
	}
	sched, err := robfigcron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("retention: invalid schedule %q: %w", expr, err)
	}
	return &Service{
		store:    store,
		maxAge:   maxAge,
		schedule: sched,
		expr:     expr,
		busy:     busy,
		now:      time.Now,
	}, nil
}

// Enabled reports whether a positive retention window is set.
func (s *Service) Enabled() bool { return s.maxAge > 0 }

// Next returns the next scheduled run after t.
func (s *Service) Next(t time.Time) time.Time { return s.schedule.Next(t) }

// Start schedules the prune and blocks until ctx is cancelled. It returns
// immediately with a nil error when retention is disabled.
func (s *Service) Start(ctx context.Context) error {
	if !s.Enabled() {
		slog.Info("retention: disabled")
		return nil
	}

	c := robfigcron.New()
	c.Schedule(s.schedule, robfigcron.FuncJob(func() {
		if _, err := s.RunOnce(); err != nil {
			slog.Warn("retention: prune failed", "err", err)
		}
	}))
	c.Start()
	slog.Info("retention: started", "schedule", s.expr, "maxAge", s.maxAge)

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// RunOnce prunes now and returns how many sessions were removed.
func (s *Service) RunOnce() (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.store.Prune(cutoff, s.busy)
	if err != nil {
		return n, fmt.Errorf("retention: prune: %w", err)
	}
	if n > 0 {
		slog.Info("retention: pruned idle sessions", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
