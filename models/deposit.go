package models

import "time"

// DepositStatus — статусы записи о депозите, соответствуют ENUM в БД.
// Переход только в одну сторону: available -> claimed.
type DepositStatus string

const (
	DepositAvailable DepositStatus = "available"
	DepositClaimed   DepositStatus = "claimed"
)

// AdminDeposit — платёж, проверенный администратором вручную.
// NormalizedTxnID уникален независимо от статуса записи.
type AdminDeposit struct {
	ID                int           `json:"id" db:"id"`
	ExternalTxnID     string        `json:"external_txn_id" db:"external_txn_id"`
	NormalizedTxnID   string        `json:"normalized_txn_id" db:"normalized_txn_id"`
	Amount            int64         `json:"amount" db:"amount"`
	Note              string        `json:"note,omitempty" db:"note"`
	Status            DepositStatus `json:"status" db:"status"`
	RegisteredAt      time.Time     `json:"registered_at" db:"registered_at"`
	ClaimedAt         *time.Time    `json:"claimed_at,omitempty" db:"claimed_at"`
	ClaimedByUserID   *int          `json:"claimed_by_user_id,omitempty" db:"claimed_by_user_id"`
	ClaimedByUsername *string       `json:"claimed_by_username,omitempty" db:"claimed_by_username"`
}
