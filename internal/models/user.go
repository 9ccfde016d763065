package models

import "time"

// User represents a Telegram user known to the bot. IsActive is cleared when
// Telegram reports the user blocked the bot or deleted their account;
// inactive users receive no reminders of any kind.
type User struct {
	ID               int64     `json:"id" db:"id"`
	TelegramID       int64     `json:"telegram_id" db:"telegram_id"`
	TelegramUsername string    `json:"telegram_username" db:"telegram_username"`
	FirstName        string    `json:"first_name" db:"first_name"`
	IsAdmin          bool      `json:"is_admin" db:"is_admin"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the best display name for the user.
func (u *User) DisplayName() string {
	if u.TelegramUsername != "" {
		return "@" + u.TelegramUsername
	}
	return u.FirstName
}
