// Package scheduler fires the daily publish from an in-process cron, so a
// deployment does not need an external timer hitting /run.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "w3feed/pkg/logx"
)

type Config struct {
	Enabled  bool
	Spec     string // cron spec (5 or 6 fields) or descriptor like "@daily"
	Timezone string
}

type runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts the publisher without the scheduler knowing its summary.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler wraps one cron entry around the publish runner.
type Scheduler struct {
	parser cron.Parser
	c      *cron.Cron
	run    runner
	log    logx.Logger

	cancel context.CancelFunc
}

func New(run RunnerFunc, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		run:    run,
		log:    log.With(logx.String("comp", "scheduler")),
	}
}

// Start validates the spec and begins firing. No-op when disabled.
func (s *Scheduler) Start(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	spec := strings.TrimSpace(cfg.Spec)
	if spec == "" {
		spec = "@daily"
	}

	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	s.c.Schedule(sched, cron.FuncJob(func() {
		if err := s.run.Run(ctx); err != nil {
			s.log.Error("scheduled run failed", logx.Err(err))
		}
	}))
	s.c.Start()

	s.log.Info("scheduler started",
		logx.String("spec", spec),
		logx.String("tz", loc.String()),
		logx.Time("next", sched.Next(time.Now().In(loc))))
	return nil
}

// Stop halts the cron and waits for an in-flight run to finish, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.c == nil {
		return
	}
	done := s.c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.c = nil
	s.log.Info("scheduler stopped")
}
