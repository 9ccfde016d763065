package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/parsarad/konkurbot/internal/clockutil"
	"github.com/parsarad/konkurbot/internal/metrics"
	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/recurrence"
	"github.com/parsarad/konkurbot/internal/repository"
	pkglogger "github.com/parsarad/konkurbot/pkg/logger"
)

// Scheduler is one long-lived polling loop for a single reminder kind. Each
// kind runs its own loop so countdown checks can stay coarse (hourly) while
// personal and broadcast rules get minute precision.
type Scheduler struct {
	kind     models.ReminderKind
	interval time.Duration
	backoff  time.Duration

	clk        *clockutil.Clock
	reminders  repository.ReminderRepository
	evaluator  *recurrence.Evaluator
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *logrus.Entry

	running *atomic.Bool
}

// NewScheduler creates a scheduler loop for one reminder kind. backoff is the
// post-error pause and must be shorter than interval.
func NewScheduler(
	kind models.ReminderKind,
	interval, backoff time.Duration,
	clk *clockutil.Clock,
	reminders repository.ReminderRepository,
	evaluator *recurrence.Evaluator,
	dispatcher *Dispatcher,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		kind:       kind,
		interval:   interval,
		backoff:    backoff,
		clk:        clk,
		reminders:  reminders,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     pkglogger.WithComponent(logger, "scheduler").WithField("kind", string(kind)),
		running:    atomic.NewBool(false),
	}
}

// Run polls until ctx is cancelled. A failing tick is logged, counted, and
// followed by a short backoff; the loop itself never dies. It blocks, so
// launch it in its own goroutine. Stopping is cooperative: in-flight
// dispatches of the current tick finish first.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.running.CAS(false, true) {
		s.logger.Warn("Scheduler already running")
		return
	}
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infof("Scheduler started, interval %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Errorf("Tick failed: %v", err)
				s.metrics.SchedulerErrors.WithLabelValues(string(s.kind)).Inc()
				if err := sleepCtx(ctx, s.backoff); err != nil {
					return
				}
			}
		}
	}
}

// IsRunning reports whether the loop is currently active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Tick runs one scheduling cycle: fetch candidates, evaluate each, dispatch
// the due ones. Per-reminder problems are logged and skipped; only a failure
// to fetch candidates fails the whole tick.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.clk.Now()

	candidates, err := s.reminders.GetDueCandidates(ctx, s.kind, now)
	if err != nil {
		return err
	}

	for _, r := range candidates {
		if recurrence.AlreadyFired(r, now, s.interval) {
			continue
		}

		due, err := s.evaluator.IsDue(r, now)
		if err != nil {
			s.logger.WithField("reminder_id", r.ID).Errorf("Evaluation failed: %v", err)
			continue
		}
		if !due {
			continue
		}

		outcome, err := s.dispatcher.Dispatch(ctx, r, now)
		if err != nil {
			s.logger.WithField("reminder_id", r.ID).Errorf("Dispatch finished with errors: %v", err)
		}
		s.logger.WithFields(logrus.Fields{
			"reminder_id": r.ID,
			"recipients":  outcome.Recipients,
			"sent":        outcome.Sent,
			"failed":      outcome.Failed,
		}).Info("Reminder dispatched")
	}

	s.metrics.SchedulerTicks.WithLabelValues(string(s.kind)).Inc()
	return nil
}
