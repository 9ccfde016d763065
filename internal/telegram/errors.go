package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RateLimitError means Telegram asked us to slow down. The dispatcher must
// wait RetryAfter before any further send.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by telegram, retry after %s", e.RetryAfter)
}

// PermanentError means the recipient is unreachable for good: they blocked
// the bot, deleted their account, or the chat no longer exists. No retry.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: %s", e.Reason)
}

// classifySendError maps a tgbotapi error to the delivery taxonomy.
// Anything unrecognized stays a transient error for the next occurrence.
func classifySendError(err error) error {
	apiErr, ok := err.(*tgbotapi.Error)
	if !ok {
		return err
	}

	if apiErr.RetryAfter > 0 {
		return &RateLimitError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	}

	msg := strings.ToLower(apiErr.Message)
	for _, marker := range []string{
		"bot was blocked",
		"user is deactivated",
		"chat not found",
		"bot can't initiate conversation",
	} {
		if strings.Contains(msg, marker) {
			return &PermanentError{Reason: apiErr.Message}
		}
	}

	return err
}
