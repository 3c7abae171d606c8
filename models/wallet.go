package models

import "time"

// TxnDirection представляет направление движения средств, соответствует ENUM в БД.
type TxnDirection string

const (
	DirectionCredit TxnDirection = "credit"
	DirectionDebit  TxnDirection = "debit"
)

// Wallet хранит текущий баланс пользователя. Создаётся лениво при первой операции.
type Wallet struct {
	UserID  int   `json:"user_id" db:"user_id"`
	Balance int64 `json:"balance" db:"balance"`
}

// WalletTransaction — неизменяемая запись в журнале кошелька.
// Инвариант: balance == sum(credit) - sum(debit) по всем записям пользователя.
type WalletTransaction struct {
	ID        int          `json:"id" db:"id"`
	UserID    int          `json:"user_id" db:"user_id"`
	Direction TxnDirection `json:"direction" db:"direction"`
	Amount    int64        `json:"amount" db:"amount"`
	Note      string       `json:"note" db:"note"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
