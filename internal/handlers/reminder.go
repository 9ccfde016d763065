package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/recurrence"
	"github.com/parsarad/konkurbot/internal/service"
)

const remindUsage = "استفاده: /remind <HH:MM> <once|daily|weekly|monthly|everyN> <متن>\n" +
	"مثال: /remind 21:30 daily مرور لغات عربی"

// RemindHandler handles the /remind command
type RemindHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewRemindHandler(svc *service.Service, logger *logrus.Logger) *RemindHandler {
	return &RemindHandler{svc: svc, logger: logger}
}

func (h *RemindHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) < 3 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, remindUsage))
		return nil
	}

	ctx := context.Background()
	user, err := h.svc.Users.Upsert(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	atTime := args[0]
	kind, intervalDays, ok := parseRecurrence(args[1])
	if !ok {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, remindUsage))
		return nil
	}

	text := strings.Join(args[2:], " ")
	reminder := &models.Reminder{
		Kind:    models.KindPersonal,
		OwnerID: &user.ID,
		Body:    text,
		Schedule: models.SimpleSchedule{
			Kind:         kind,
			AnchorDate:   h.svc.Clock().Now(),
			AtTime:       atTime,
			IntervalDays: intervalDays,
		},
		RepeatCount: 1,
	}

	reminder, err = h.svc.CreateReminder(ctx, reminder)
	if err != nil {
		if errors.Is(err, recurrence.ErrInvalidConfig) {
			bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ "+err.Error()))
			return nil
		}
		return fmt.Errorf("create reminder: %w", err)
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID,
		fmt.Sprintf("⏰ یادآور #%d ساعت %s تنظیم شد.", reminder.ID, atTime)))
	return nil
}

// parseRecurrence maps the command token to a recurrence kind. everyN means
// every N days, e.g. every3.
func parseRecurrence(token string) (models.RecurrenceKind, int, bool) {
	switch token {
	case "once":
		return models.RecurOnce, 0, true
	case "daily":
		return models.RecurDaily, 0, true
	case "weekly":
		return models.RecurWeekly, 0, true
	case "monthly":
		return models.RecurMonthly, 0, true
	}
	if n, ok := strings.CutPrefix(token, "every"); ok {
		if days, err := strconv.Atoi(n); err == nil && days >= 1 {
			return models.RecurCustom, days, true
		}
	}
	return "", 0, false
}

// RemindersListHandler handles the /reminders command
type RemindersListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewRemindersListHandler(svc *service.Service, logger *logrus.Logger) *RemindersListHandler {
	return &RemindersListHandler{svc: svc, logger: logger}
}

func (h *RemindersListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.svc.Users.Upsert(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	reminders, err := h.svc.Reminders.ListByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}

	if len(reminders) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "⏰ یادآوری نداری. با /remind بساز."))
		return nil
	}

	var sb strings.Builder
	sb.WriteString("⏰ یادآورهای تو:\n\n")
	for _, r := range reminders {
		state := "✅"
		if !r.IsActive {
			state = "⏸"
		}
		sb.WriteString(fmt.Sprintf("%s #%d: %s — %s\n", state, r.ID, describeSchedule(r.Schedule), summary(r)))
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, sb.String()))
	return nil
}

func summary(r *models.Reminder) string {
	if r.Title != "" {
		return r.Title
	}
	if len(r.Body) > 40 {
		return r.Body[:40] + "…"
	}
	return r.Body
}

func describeSchedule(s models.Schedule) string {
	switch v := s.(type) {
	case models.SimpleSchedule:
		switch v.Kind {
		case models.RecurOnce:
			return fmt.Sprintf("یک‌بار %s", v.AtTime)
		case models.RecurDaily:
			return fmt.Sprintf("هر روز %s", v.AtTime)
		case models.RecurWeekly:
			return fmt.Sprintf("هفتگی %s", v.AtTime)
		case models.RecurMonthly:
			return fmt.Sprintf("ماهانه %s", v.AtTime)
		default:
			return fmt.Sprintf("هر %d روز %s", v.IntervalDays, v.AtTime)
		}
	case models.DaysBefore:
		return fmt.Sprintf("%d روز قبل از %s", v.OffsetDays, v.EventKey)
	case models.WeekWindow:
		return fmt.Sprintf("%s تا %s", v.StartTime, v.EndTime)
	default:
		return ""
	}
}

// RemindDeleteHandler handles the /delremind command
type RemindDeleteHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewRemindDeleteHandler(svc *service.Service, logger *logrus.Logger) *RemindDeleteHandler {
	return &RemindDeleteHandler{svc: svc, logger: logger}
}

func (h *RemindDeleteHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	reminder, ok, err := h.ownedReminder(bot, message, args, "/delremind <id>")
	if err != nil || !ok {
		return err
	}

	if _, err := h.svc.DeleteReminder(context.Background(), reminder.ID); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("🗑 یادآور #%d حذف شد.", reminder.ID)))
	return nil
}

// ownedReminder parses an id argument and checks the reminder belongs to the
// calling user, answering the chat itself when it does not.
func (h *RemindDeleteHandler) ownedReminder(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string, usage string) (*models.Reminder, bool, error) {
	return ownedReminder(h.svc, bot, message, args, usage)
}

func ownedReminder(svc *service.Service, bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string, usage string) (*models.Reminder, bool, error) {
	if len(args) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "استفاده: "+usage))
		return nil, false, nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ شناسه نامعتبر است."))
		return nil, false, nil
	}

	ctx := context.Background()
	user, err := svc.Users.GetByTelegramID(ctx, message.From.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	reminder, err := svc.Reminders.GetByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get reminder: %w", err)
	}
	if reminder == nil || user == nil || reminder.OwnerID == nil || *reminder.OwnerID != user.ID {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ یادآوری با این شناسه نداری."))
		return nil, false, nil
	}
	return reminder, true, nil
}

// RemindToggleHandler handles the /togglereminder command
type RemindToggleHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewRemindToggleHandler(svc *service.Service, logger *logrus.Logger) *RemindToggleHandler {
	return &RemindToggleHandler{svc: svc, logger: logger}
}

func (h *RemindToggleHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	reminder, ok, err := ownedReminder(h.svc, bot, message, args, "/togglereminder <id>")
	if err != nil || !ok {
		return err
	}

	if err := h.svc.Reminders.SetActive(context.Background(), reminder.ID, !reminder.IsActive); err != nil {
		return fmt.Errorf("toggle reminder: %w", err)
	}

	state := "فعال"
	if reminder.IsActive {
		state = "غیرفعال"
	}
	bot.Send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("یادآور #%d %s شد.", reminder.ID, state)))
	return nil
}
