package models

import "time"

// NotificationType — тип события для инбокса пользователя.
type NotificationType string

const (
	NotificationWallet     NotificationType = "wallet"
	NotificationBooking    NotificationType = "booking"
	NotificationWithdrawal NotificationType = "withdrawal"
	NotificationDeposit    NotificationType = "deposit"
	NotificationRoom       NotificationType = "room"
)

// Notification — запись в инбоксе. Доставка best-effort: сбой записи
// никогда не откатывает породившую её операцию.
type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
