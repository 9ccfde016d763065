package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/service"
)

// OptOutHandler handles /optout and /optin, flipping a user's participation
// in one broadcast reminder. Without arguments /optout lists current opt-outs.
type OptOutHandler struct {
	svc    *service.Service
	optIn  bool
	logger *logrus.Logger
}

func NewOptOutHandler(svc *service.Service, optIn bool, logger *logrus.Logger) *OptOutHandler {
	return &OptOutHandler{svc: svc, optIn: optIn, logger: logger}
}

func (h *OptOutHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	user, err := h.svc.Users.Upsert(ctx, message.From.ID, message.From.UserName, message.From.FirstName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	if len(args) == 0 && !h.optIn {
		return h.listOptOuts(ctx, bot, message, user.ID)
	}

	usage := "/optout <id>"
	if h.optIn {
		usage = "/optin <id>"
	}
	id, ok := parseID(bot, message, args, usage)
	if !ok {
		return nil
	}

	reminder, err := h.svc.Reminders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get reminder: %w", err)
	}
	if reminder == nil || reminder.Kind != models.KindBroadcast {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ اعلان همگانی با این شناسه وجود ندارد."))
		return nil
	}

	if err := h.svc.OptOuts.SetOptIn(ctx, user.ID, id, h.optIn); err != nil {
		return fmt.Errorf("set opt-in: %w", err)
	}

	text := fmt.Sprintf("🔕 اعلان #%d دیگر برایت ارسال نمی‌شود.", id)
	if h.optIn {
		text = fmt.Sprintf("🔔 اعلان #%d دوباره فعال شد.", id)
	}
	bot.Send(tgbotapi.NewMessage(message.Chat.ID, text))
	return nil
}

func (h *OptOutHandler) listOptOuts(ctx context.Context, bot *tgbotapi.BotAPI, message *tgbotapi.Message, userID int64) error {
	ids, err := h.svc.OptOuts.ListForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list opt-outs: %w", err)
	}

	if len(ids) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID,
			"همه اعلان‌های همگانی برایت فعال است. برای قطع: /optout <id>"))
		return nil
	}

	var sb strings.Builder
	sb.WriteString("🔕 اعلان‌های قطع‌شده:\n")
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("#%d\n", id))
	}
	sb.WriteString("\nبرای وصل دوباره: /optin <id>")
	bot.Send(tgbotapi.NewMessage(message.Chat.ID, sb.String()))
	return nil
}
