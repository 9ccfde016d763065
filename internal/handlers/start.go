package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/service"
)

// StartHandler handles the /start command
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{svc: svc, logger: logger}
}

func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.svc.Users.Upsert(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	text := fmt.Sprintf(
		"سلام %s! 🎓\nمن تا روز کنکور همراهت هستم.\n\n"+
			"/countdown — چند روز تا آزمون‌ها مانده\n"+
			"/remind — یادآور شخصی بساز\n"+
			"/help — همه دستورها",
		user.DisplayName())
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	bot.Send(msg)
	return nil
}

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	text := "📚 دستورها:\n\n" +
		"/countdown — شمارش معکوس آزمون‌ها\n" +
		"/exams — فهرست آزمون‌ها\n" +
		"/examremind <آزمون> <روز> — یادآور پیش از آزمون\n" +
		"/remind <HH:MM> <once|daily|weekly|monthly|everyN> <متن> — یادآور شخصی\n" +
		"/reminders — یادآورهای من\n" +
		"/delremind <id> — حذف یادآور\n" +
		"/togglereminder <id> — فعال/غیرفعال\n" +
		"/optout <id> و /optin <id> — اعلان‌های همگانی"
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	bot.Send(msg)
	return nil
}
