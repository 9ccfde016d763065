package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/clockutil"
	"github.com/parsarad/konkurbot/internal/events"
	"github.com/parsarad/konkurbot/internal/metrics"
	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/recurrence"
	"github.com/parsarad/konkurbot/internal/repository"
)

// Tick intervals per reminder kind. Countdown rules only change state once a
// day, so an hourly check is enough; personal and broadcast rules carry
// minute-precision times.
const (
	countdownInterval = time.Hour
	personalInterval  = time.Minute
	broadcastInterval = time.Minute
	errorBackoff      = 10 * time.Second
)

// Service aggregates the repositories and domain components behind the
// command handlers and the ops API.
type Service struct {
	logger  *logrus.Logger
	clk     *clockutil.Clock
	metrics *metrics.Metrics

	Users     repository.UserRepository
	Reminders repository.ReminderRepository
	Logs      repository.DeliveryLogRepository
	OptOuts   repository.OptOutRepository
	Events    *events.Registry

	evaluator *recurrence.Evaluator
}

// New creates the service layer over the given repositories.
func New(
	logger *logrus.Logger,
	clk *clockutil.Clock,
	m *metrics.Metrics,
	users repository.UserRepository,
	reminders repository.ReminderRepository,
	logs repository.DeliveryLogRepository,
	optOuts repository.OptOutRepository,
	registry *events.Registry,
) *Service {
	return &Service{
		logger:    logger,
		clk:       clk,
		metrics:   m,
		Users:     users,
		Reminders: reminders,
		Logs:      logs,
		OptOuts:   optOuts,
		Events:    registry,
		evaluator: recurrence.NewEvaluator(registry),
	}
}

// Clock returns the service's civil clock.
func (s *Service) Clock() *clockutil.Clock { return s.clk }

// StartSchedulers launches one polling loop per reminder kind and returns
// them. Each loop runs until ctx is cancelled.
func (s *Service) StartSchedulers(ctx context.Context, sender Sender) []*Scheduler {
	dispatcher := NewDispatcher(sender, s.Users, s.OptOuts, s.Reminders, s.Logs, s.metrics, s.logger)

	schedulers := []*Scheduler{
		NewScheduler(models.KindCountdown, countdownInterval, errorBackoff,
			s.clk, s.Reminders, s.evaluator, dispatcher, s.metrics, s.logger),
		NewScheduler(models.KindPersonal, personalInterval, errorBackoff,
			s.clk, s.Reminders, s.evaluator, dispatcher, s.metrics, s.logger),
		NewScheduler(models.KindBroadcast, broadcastInterval, errorBackoff,
			s.clk, s.Reminders, s.evaluator, dispatcher, s.metrics, s.logger),
	}
	for _, sched := range schedulers {
		go sched.Run(ctx)
	}
	return schedulers
}

// CreateReminder validates and stores a new rule. Invalid configurations are
// rejected synchronously with recurrence.ErrInvalidConfig, never stored.
func (s *Service) CreateReminder(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	if err := recurrence.Validate(r); err != nil {
		return nil, err
	}
	return s.Reminders.Create(ctx, r)
}

// UpdateReminder applies a partial update after validating the merged rule.
// It returns (nil, nil) when the id does not exist.
func (s *Service) UpdateReminder(ctx context.Context, id int64, upd *models.ReminderUpdate) (*models.Reminder, error) {
	existing, err := s.Reminders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	merged := *existing
	if upd.Title != nil {
		merged.Title = *upd.Title
	}
	if upd.Body != nil {
		merged.Body = *upd.Body
	}
	if upd.Schedule != nil {
		merged.Schedule = upd.Schedule
	}
	if upd.RepeatCount != nil {
		merged.RepeatCount = *upd.RepeatCount
	}
	if upd.RepeatIntervalSec != nil {
		merged.RepeatIntervalSec = *upd.RepeatIntervalSec
	}
	if err := recurrence.Validate(&merged); err != nil {
		return nil, err
	}

	return s.Reminders.Update(ctx, id, upd)
}

// DeleteReminder removes a rule and, via the schema, its opt-outs and logs.
// Deleting an unknown id is not an error.
func (s *Service) DeleteReminder(ctx context.Context, id int64) (bool, error) {
	return s.Reminders.Delete(ctx, id)
}
