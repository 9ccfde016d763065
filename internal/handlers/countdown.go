package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/clockutil"
	"github.com/parsarad/konkurbot/internal/events"
	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/recurrence"
	"github.com/parsarad/konkurbot/internal/service"
)

// CountdownHandler handles the /countdown command
type CountdownHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewCountdownHandler(svc *service.Service, logger *logrus.Logger) *CountdownHandler {
	return &CountdownHandler{svc: svc, logger: logger}
}

func (h *CountdownHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	exams, err := h.svc.Events.All(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}

	if len(exams) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "فعلا آزمونی ثبت نشده."))
		return nil
	}

	now := h.svc.Clock().Now()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⏳ شمارش معکوس — امروز %s:\n\n", clockutil.Jalali(now)))
	for _, e := range exams {
		sb.WriteString(events.CountdownLine(e, now))
		sb.WriteString("\n")
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, sb.String()))
	return nil
}

// ExamsListHandler handles the /exams command
type ExamsListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewExamsListHandler(svc *service.Service, logger *logrus.Logger) *ExamsListHandler {
	return &ExamsListHandler{svc: svc, logger: logger}
}

func (h *ExamsListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	exams, err := h.svc.Events.All(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("📋 آزمون‌ها:\n\n")
	for _, e := range exams {
		sb.WriteString(fmt.Sprintf("%s — %s (%s)\n", e.Key, e.Name, e.DisplayDate))
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, sb.String()))
	return nil
}

// ExamRemindHandler handles the /examremind command
type ExamRemindHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewExamRemindHandler(svc *service.Service, logger *logrus.Logger) *ExamRemindHandler {
	return &ExamRemindHandler{svc: svc, logger: logger}
}

func (h *ExamRemindHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID,
			"استفاده: /examremind <آزمون> <چند روز قبل>\nکلید آزمون‌ها را با /exams ببین."))
		return nil
	}

	ctx := context.Background()
	user, err := h.svc.Users.Upsert(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	exam, err := h.svc.Events.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ چنین آزمونی ثبت نشده. /exams"))
		return nil
	}

	offset, err := strconv.Atoi(args[1])
	if err != nil || offset < 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ تعداد روز نامعتبر است."))
		return nil
	}

	reminder := &models.Reminder{
		Kind:        models.KindCountdown,
		OwnerID:     &user.ID,
		Title:       exam.Name,
		Body:        fmt.Sprintf("%d روز تا %s (%s). وقت جمع‌بندی است!", offset, exam.Name, exam.DisplayDate),
		Schedule:    models.DaysBefore{EventKey: exam.Key, OffsetDays: offset},
		RepeatCount: 1,
	}

	reminder, err = h.svc.CreateReminder(ctx, reminder)
	if err != nil {
		if errors.Is(err, recurrence.ErrInvalidConfig) {
			bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ "+err.Error()))
			return nil
		}
		return fmt.Errorf("create countdown reminder: %w", err)
	}

	var fireDays []string
	for _, d := range exam.Dates {
		fireDays = append(fireDays, clockutil.JalaliShort(d.AddDate(0, 0, -offset)))
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID,
		fmt.Sprintf("✅ یادآور #%d: %d روز قبل از %s خبرت می‌کنم (%s).",
			reminder.ID, offset, exam.Name, strings.Join(fireDays, "، "))))
	return nil
}
