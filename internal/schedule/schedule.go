package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/library"
	cronlib "github.com/robfig/cron/v3"
)

// Launcher starts batch runs
type Launcher interface {
	Launch(ctx context.Context, ids []string) (string, error)
	Status() batch.Status
}

// Scheduler periodically scans for images missing ALT text and starts a
// batch for them when no batch is running.
type Scheduler struct {
	cron     *cronlib.Cron
	schedule cronlib.Schedule
	src      library.Source
	launcher Launcher
}

var parser = cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

// New parses expr, a five-field cron expression or a descriptor such as
// "@every 6h" or "@daily".
func New(expr string, src library.Source, launcher Launcher) (*Scheduler, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("schedule expression is required")
	}

	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", expr, err)
	}

	return &Scheduler{
		cron:     cronlib.New(cronlib.WithParser(parser)),
		schedule: sched,
		src:      src,
		launcher: launcher,
	}, nil
}

// Next returns the next activation after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start runs the schedule in the background until ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Schedule(s.schedule, cronlib.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			slog.Error("Scheduled scan failed", "error", err)
		}
	}))
	s.cron.Start()
	slog.Info("Scheduled scans enabled", "next", s.Next(time.Now()).Format(time.RFC3339))

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// RunOnce scans the library and launches a batch for the images missing
// ALT text. It returns the new run ID, or "" when nothing was started.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	if s.launcher.Status().Running {
		slog.Info("Skipping scheduled scan, batch already running")
		return "", nil
	}

	result, err := library.ScanMissing(ctx, s.src)
	if err != nil {
		return "", err
	}
	if result.WithoutAlt == 0 {
		slog.Info("Scheduled scan found no images missing ALT text", "total", result.Total)
		return "", nil
	}

	runID, err := s.launcher.Launch(ctx, library.IDs(result.Images))
	if errors.Is(err, batch.ErrRunning) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to launch batch: %w", err)
	}

	slog.Info("Scheduled batch started", "run_id", runID, "images", result.WithoutAlt)
	return runID, nil
}
