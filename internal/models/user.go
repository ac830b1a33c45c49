package models

import (
	"time"
)

type User struct {
	ID         int64       `json:"id"`
	TelegramID int64       `json:"telegram_id"`
	ChatID     int64       `json:"chat_id"`
	Username   string      `json:"username"`
	Profile    UserProfile `json:"profile"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Payment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	StripePaymentID string    `json:"stripe_payment_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

// UserState is the in-memory progress of one user through the questionnaire.
type UserState struct {
	TelegramID      int64       `json:"telegram_id"`
	ChatID          int64       `json:"chat_id"`
	CurrentState    string      `json:"current_state"`
	Profile         UserProfile `json:"profile"`
	StripeSessionID string      `json:"stripe_session_id"`
}
