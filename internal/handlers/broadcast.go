package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/recurrence"
	"github.com/parsarad/konkurbot/internal/service"
)

const broadcastAddUsage = "استفاده: /broadcast_add <روزها> <HH:MM> <HH:MM> <متن>\n" +
	"روزها: اعداد 0 تا 6 با کاما (0=یکشنبه)، یا * برای هر روز\n" +
	"مثال: /broadcast_add 5,6 08:00 08:05 برنامه مطالعه آخر هفته"

// adminGate wraps the admin check shared by the broadcast and stats commands.
type adminGate struct {
	isAdmin func(telegramID int64) bool
}

func (g adminGate) allow(bot *tgbotapi.BotAPI, message *tgbotapi.Message) bool {
	if g.isAdmin(message.From.ID) {
		return true
	}
	bot.Send(tgbotapi.NewMessage(message.Chat.ID, "این دستور مخصوص مدیر است."))
	return false
}

// BroadcastAddHandler handles the /broadcast_add command
type BroadcastAddHandler struct {
	svc    *service.Service
	gate   adminGate
	logger *logrus.Logger
}

func NewBroadcastAddHandler(svc *service.Service, isAdmin func(int64) bool, logger *logrus.Logger) *BroadcastAddHandler {
	return &BroadcastAddHandler{svc: svc, gate: adminGate{isAdmin: isAdmin}, logger: logger}
}

func (h *BroadcastAddHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if !h.gate.allow(bot, message) {
		return nil
	}
	if len(args) < 4 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, broadcastAddUsage))
		return nil
	}

	days, ok := parseWeekdays(args[0])
	if !ok {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, broadcastAddUsage))
		return nil
	}

	reminder := &models.Reminder{
		Kind: models.KindBroadcast,
		Body: strings.Join(args[3:], " "),
		Schedule: models.WeekWindow{
			Days:      days,
			StartTime: args[1],
			EndTime:   args[2],
		},
		RepeatCount: 1,
	}

	reminder, err := h.svc.CreateReminder(context.Background(), reminder)
	if err != nil {
		if errors.Is(err, recurrence.ErrInvalidConfig) {
			bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ "+err.Error()))
			return nil
		}
		return fmt.Errorf("create broadcast reminder: %w", err)
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID,
		fmt.Sprintf("📣 اعلان همگانی #%d ساخته شد.", reminder.ID)))
	return nil
}

// parseWeekdays parses "5,6" or "*" into a weekday set.
func parseWeekdays(token string) ([]time.Weekday, bool) {
	if token == "*" {
		return []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}, true
	}

	var days []time.Weekday
	for _, part := range strings.Split(token, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, false
		}
		days = append(days, time.Weekday(n))
	}
	return days, len(days) > 0
}

// BroadcastListHandler handles the /broadcast_list command
type BroadcastListHandler struct {
	svc    *service.Service
	gate   adminGate
	logger *logrus.Logger
}

func NewBroadcastListHandler(svc *service.Service, isAdmin func(int64) bool, logger *logrus.Logger) *BroadcastListHandler {
	return &BroadcastListHandler{svc: svc, gate: adminGate{isAdmin: isAdmin}, logger: logger}
}

func (h *BroadcastListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if !h.gate.allow(bot, message) {
		return nil
	}

	reminders, err := h.svc.Reminders.ListByKind(context.Background(), models.KindBroadcast)
	if err != nil {
		return fmt.Errorf("list broadcast reminders: %w", err)
	}

	if len(reminders) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "اعلان همگانی ثبت نشده."))
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📣 اعلان‌های همگانی:\n\n")
	for _, r := range reminders {
		state := "✅"
		if !r.IsActive {
			state = "⏸"
		}
		sb.WriteString(fmt.Sprintf("%s #%d: %s — %s (ارسال: %d)\n",
			state, r.ID, describeSchedule(r.Schedule), summary(r), r.TotalSent))
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, sb.String()))
	return nil
}

// BroadcastDeleteHandler handles the /broadcast_del command
type BroadcastDeleteHandler struct {
	svc    *service.Service
	gate   adminGate
	logger *logrus.Logger
}

func NewBroadcastDeleteHandler(svc *service.Service, isAdmin func(int64) bool, logger *logrus.Logger) *BroadcastDeleteHandler {
	return &BroadcastDeleteHandler{svc: svc, gate: adminGate{isAdmin: isAdmin}, logger: logger}
}

func (h *BroadcastDeleteHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if !h.gate.allow(bot, message) {
		return nil
	}

	id, ok := parseID(bot, message, args, "/broadcast_del <id>")
	if !ok {
		return nil
	}

	deleted, err := h.svc.DeleteReminder(context.Background(), id)
	if err != nil {
		return fmt.Errorf("delete broadcast reminder: %w", err)
	}
	if !deleted {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "چنین اعلانی وجود ندارد."))
		return nil
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("🗑 اعلان #%d حذف شد.", id)))
	return nil
}

// BroadcastToggleHandler handles the /broadcast_toggle command
type BroadcastToggleHandler struct {
	svc    *service.Service
	gate   adminGate
	logger *logrus.Logger
}

func NewBroadcastToggleHandler(svc *service.Service, isAdmin func(int64) bool, logger *logrus.Logger) *BroadcastToggleHandler {
	return &BroadcastToggleHandler{svc: svc, gate: adminGate{isAdmin: isAdmin}, logger: logger}
}

func (h *BroadcastToggleHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if !h.gate.allow(bot, message) {
		return nil
	}

	id, ok := parseID(bot, message, args, "/broadcast_toggle <id>")
	if !ok {
		return nil
	}

	ctx := context.Background()
	reminder, err := h.svc.Reminders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get broadcast reminder: %w", err)
	}
	if reminder == nil || reminder.Kind != models.KindBroadcast {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "چنین اعلانی وجود ندارد."))
		return nil
	}

	if err := h.svc.Reminders.SetActive(ctx, id, !reminder.IsActive); err != nil {
		return fmt.Errorf("toggle broadcast reminder: %w", err)
	}

	state := "فعال"
	if reminder.IsActive {
		state = "غیرفعال"
	}
	bot.Send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("اعلان #%d %s شد.", id, state)))
	return nil
}

func parseID(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string, usage string) (int64, bool) {
	if len(args) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "استفاده: "+usage))
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ شناسه نامعتبر است."))
		return 0, false
	}
	return id, true
}
