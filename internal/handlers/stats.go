package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/parsarad/konkurbot/internal/service"
)

// StatsHandler handles the admin /stats command, summarizing the delivery log.
type StatsHandler struct {
	svc    *service.Service
	gate   adminGate
	logger *logrus.Logger
}

func NewStatsHandler(svc *service.Service, isAdmin func(int64) bool, logger *logrus.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, gate: adminGate{isAdmin: isAdmin}, logger: logger}
}

func (h *StatsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if !h.gate.allow(bot, message) {
		return nil
	}

	stats, err := h.svc.Logs.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("delivery stats: %w", err)
	}

	if len(stats) == 0 {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "هنوز ارسالی ثبت نشده."))
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📊 آمار ارسال:\n\n")
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("%s / %s: %d\n", s.Kind, s.Status, s.Count))
	}

	bot.Send(tgbotapi.NewMessage(message.Chat.ID, sb.String()))
	return nil
}
