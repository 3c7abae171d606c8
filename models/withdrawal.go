package models

import "time"

// WithdrawalStatus — статусы заявки на вывод. Единственный переход: pending -> paid.
type WithdrawalStatus string

const (
	WithdrawalPending WithdrawalStatus = "pending"
	WithdrawalPaid    WithdrawalStatus = "paid"
)

// Withdrawal — заявка на вывод средств. Баланс списывается в момент создания
// заявки, отметка paid баланс больше не меняет.
type Withdrawal struct {
	ID            int              `json:"id" db:"id"`
	Reference     string           `json:"reference" db:"reference"`
	UserID        int              `json:"user_id" db:"user_id"`
	Username      string           `json:"username" db:"username"`
	Amount        int64            `json:"amount" db:"amount"`
	PayoutAddress string           `json:"payout_address" db:"payout_address"`
	Status        WithdrawalStatus `json:"status" db:"status"`
	RequestedAt   time.Time        `json:"requested_at" db:"requested_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
}
