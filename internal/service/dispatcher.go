package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/metrics"
	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/repository"
	"github.com/parsarad/konkurbot/internal/telegram"
	pkglogger "github.com/parsarad/konkurbot/pkg/logger"
)

// broadcastPause is the fixed gap between consecutive sends in a fan-out,
// keeping the bot under Telegram's throughput ceiling.
const broadcastPause = 50 * time.Millisecond

// Sender delivers one message to one Telegram chat. telegram.Bot implements
// it; tests use a fake.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, rich bool) error
}

// DeliveryOutcome summarizes one dispatched occurrence.
type DeliveryOutcome struct {
	Recipients int
	Sent       int
	Failed     int
}

// Dispatcher fans a fired reminder out to its recipients. One recipient's
// failure never aborts the rest; every attempt lands in the delivery log.
type Dispatcher struct {
	sender    Sender
	users     repository.UserRepository
	optOuts   repository.OptOutRepository
	reminders repository.ReminderRepository
	logs      repository.DeliveryLogRepository
	metrics   *metrics.Metrics
	logger    *logrus.Entry

	// sleep is replaceable in tests so repeat bursts don't take real time.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a Dispatcher over the given collaborators.
func NewDispatcher(
	sender Sender,
	users repository.UserRepository,
	optOuts repository.OptOutRepository,
	reminders repository.ReminderRepository,
	logs repository.DeliveryLogRepository,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		users:     users,
		optOuts:   optOuts,
		reminders: reminders,
		logs:      logs,
		metrics:   m,
		logger:    pkglogger.WithComponent(logger, "dispatcher"),
		sleep:     sleepCtx,
	}
}

// Dispatch delivers one fired occurrence of r. It updates the rule's
// occurrence bookkeeping (last_sent_at, total_sent) exactly once, regardless
// of recipient count or repeat expansion.
func (d *Dispatcher) Dispatch(ctx context.Context, r *models.Reminder, now time.Time) (*DeliveryOutcome, error) {
	outcome := &DeliveryOutcome{}

	// A zero repeat count records the occurrence without sending anything.
	if r.RepeatCount == 0 {
		if err := d.reminders.MarkFired(ctx, r.ID, now, false); err != nil {
			return outcome, err
		}
		return outcome, nil
	}

	recipients, err := d.resolveRecipients(ctx, r)
	if err != nil {
		return outcome, err
	}
	outcome.Recipients = len(recipients)

	var errs *multierror.Error
	for k := 0; k < r.RepeatCount; k++ {
		if k > 0 {
			if err := d.sleep(ctx, time.Duration(r.RepeatIntervalSec)*time.Second); err != nil {
				errs = multierror.Append(errs, err)
				break
			}
		}

		text := renderMessage(r, k)
		for i, u := range recipients {
			if i > 0 {
				if err := d.sleep(ctx, broadcastPause); err != nil {
					errs = multierror.Append(errs, err)
					break
				}
			}
			if err := d.sendOne(ctx, r, u, text); err != nil {
				errs = multierror.Append(errs, err)
				outcome.Failed++
				continue
			}
			outcome.Sent++
		}
	}

	if err := d.reminders.MarkFired(ctx, r.ID, now, true); err != nil {
		errs = multierror.Append(errs, err)
	}

	return outcome, errs.ErrorOrNil()
}

// resolveRecipients returns the active users this reminder targets. A
// personal or countdown reminder with a missing or inactive owner resolves
// to zero recipients after a failed log entry, so the audit trail shows why
// nothing went out.
func (d *Dispatcher) resolveRecipients(ctx context.Context, r *models.Reminder) ([]*models.User, error) {
	if !r.IsBroadcast() {
		if r.OwnerID == nil {
			return nil, fmt.Errorf("reminder %d has no owner", r.ID)
		}
		owner, err := d.users.GetByID(ctx, *r.OwnerID)
		if err != nil {
			return nil, err
		}
		if owner == nil || !owner.IsActive {
			d.appendLog(ctx, r, *r.OwnerID, models.DeliveryFailed, "recipient inactive or unknown", 0)
			return nil, nil
		}
		return []*models.User{owner}, nil
	}

	users, err := d.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	optedOut, err := d.optOuts.ListOptedOutUsers(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	skip := make(map[int64]bool, len(optedOut))
	for _, id := range optedOut {
		skip[id] = true
	}

	recipients := make([]*models.User, 0, len(users))
	for _, u := range users {
		if !skip[u.ID] {
			recipients = append(recipients, u)
		}
	}
	return recipients, nil
}

// sendOne performs a single delivery attempt, honoring one rate-limit wait,
// and logs the result whatever it was.
func (d *Dispatcher) sendOne(ctx context.Context, r *models.Reminder, u *models.User, text string) error {
	start := time.Now()
	err := d.sender.Send(ctx, u.TelegramID, text, true)

	var rl *telegram.RateLimitError
	if errors.As(err, &rl) {
		if serr := d.sleep(ctx, rl.RetryAfter); serr != nil {
			err = serr
		} else {
			err = d.sender.Send(ctx, u.TelegramID, text, true)
		}
	}
	latency := time.Since(start).Milliseconds()

	if err == nil {
		d.appendLog(ctx, r, u.ID, models.DeliverySent, "", latency)
		d.metrics.Deliveries.WithLabelValues(string(r.Kind), string(models.DeliverySent)).Inc()
		return nil
	}

	var perm *telegram.PermanentError
	if errors.As(err, &perm) {
		// The user blocked the bot or is gone; stop targeting them until
		// they come back on their own.
		if uerr := d.users.SetActive(ctx, u.ID, false); uerr != nil {
			d.logger.WithField("user_id", u.ID).Errorf("Failed to deactivate user: %v", uerr)
		}
	}

	d.appendLog(ctx, r, u.ID, models.DeliveryFailed, err.Error(), latency)
	d.metrics.Deliveries.WithLabelValues(string(r.Kind), string(models.DeliveryFailed)).Inc()
	return fmt.Errorf("send to user %d: %w", u.ID, err)
}

func (d *Dispatcher) appendLog(ctx context.Context, r *models.Reminder, userID int64, status models.DeliveryStatus, errMsg string, latencyMs int64) {
	entry := &models.DeliveryLog{
		ReminderID:   r.ID,
		ReminderKind: r.Kind,
		RecipientID:  userID,
		Status:       status,
		ErrorMessage: errMsg,
		LatencyMs:    latencyMs,
		SentAt:       time.Now(),
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		d.logger.WithField("reminder_id", r.ID).Errorf("Failed to append delivery log: %v", err)
	}
}

// renderMessage builds the outgoing HTML text, tagging burst sends with
// their sequence number so a user sees "2/3" on the second of three.
func renderMessage(r *models.Reminder, k int) string {
	text := r.Body
	if r.Title != "" {
		text = fmt.Sprintf("<b>%s</b>\n%s", r.Title, r.Body)
	}
	if r.RepeatCount > 1 {
		text = fmt.Sprintf("%s\n(%d/%d)", text, k+1, r.RepeatCount)
	}
	return text
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
