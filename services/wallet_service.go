package services

import (
	"context"
	"fmt"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/repositories"
)

// WalletService владеет балансами и журналом кошельков. Любое изменение
// баланса — одно атомарное read-modify-write под блокировкой строки кошелька:
// конкурентные операции по одному пользователю сериализуются, по разным —
// идут параллельно.
type WalletService struct {
	tx       repositories.Transactor
	repo     repositories.WalletRepository
	notifier Notifier
}

func NewWalletService(tx repositories.Transactor, repo repositories.WalletRepository, notifier Notifier) *WalletService {
	return &WalletService{tx: tx, repo: repo, notifier: notifier}
}

// GetBalance возвращает текущий баланс. Отсутствие кошелька — нулевой баланс.
func (s *WalletService) GetBalance(ctx context.Context, userID int) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *WalletService) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]models.WalletTransaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// CreditTx пополняет баланс внутри уже открытой транзакции вызывающего.
func (s *WalletService) CreditTx(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64, note string) (int64, *models.WalletTransaction, error) {
	if amount <= 0 {
		return 0, nil, ErrInvalidAmount
	}

	balance, err := s.repo.GetBalanceForUpdate(ctx, exec, userID)
	if err != nil {
		return 0, nil, err
	}

	newBalance := balance + amount
	if err := s.repo.SetBalance(ctx, exec, userID, newBalance); err != nil {
		return 0, nil, err
	}

	txn := &models.WalletTransaction{
		UserID:    userID,
		Direction: models.DirectionCredit,
		Amount:    amount,
		Note:      note,
	}
	if err := s.repo.AppendTransaction(ctx, exec, txn); err != nil {
		return 0, nil, err
	}
	return newBalance, txn, nil
}

// DebitTx списывает с баланса внутри уже открытой транзакции вызывающего.
// Баланс никогда не уходит в минус: нехватка средств возвращает
// ErrInsufficientBalance, состояние не меняется.
func (s *WalletService) DebitTx(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64, note string) (int64, *models.WalletTransaction, error) {
	if amount <= 0 {
		return 0, nil, ErrInvalidAmount
	}

	balance, err := s.repo.GetBalanceForUpdate(ctx, exec, userID)
	if err != nil {
		return 0, nil, err
	}
	if amount > balance {
		return 0, nil, ErrInsufficientBalance
	}

	newBalance := balance - amount
	if err := s.repo.SetBalance(ctx, exec, userID, newBalance); err != nil {
		return 0, nil, err
	}

	txn := &models.WalletTransaction{
		UserID:    userID,
		Direction: models.DirectionDebit,
		Amount:    amount,
		Note:      note,
	}
	if err := s.repo.AppendTransaction(ctx, exec, txn); err != nil {
		return 0, nil, err
	}
	return newBalance, txn, nil
}

// Credit — самостоятельная операция пополнения с уведомлением.
func (s *WalletService) Credit(ctx context.Context, userID int, amount int64, note string) (int64, *models.WalletTransaction, error) {
	var (
		balance int64
		txn     *models.WalletTransaction
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		balance, txn, txErr = s.CreditTx(ctx, exec, userID, amount, note)
		return txErr
	})
	if err != nil {
		return 0, nil, err
	}

	s.notifier.Notify(ctx, userID, models.NotificationWallet,
		"Wallet credited",
		fmt.Sprintf("%d added to your wallet: %s. New balance: %d.", amount, note, balance),
	)
	return balance, txn, nil
}

// Debit — самостоятельная операция списания с уведомлением.
func (s *WalletService) Debit(ctx context.Context, userID int, amount int64, note string) (int64, *models.WalletTransaction, error) {
	var (
		balance int64
		txn     *models.WalletTransaction
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		balance, txn, txErr = s.DebitTx(ctx, exec, userID, amount, note)
		return txErr
	})
	if err != nil {
		return 0, nil, err
	}

	s.notifier.Notify(ctx, userID, models.NotificationWallet,
		"Wallet debited",
		fmt.Sprintf("%d deducted from your wallet: %s. New balance: %d.", amount, note, balance),
	)
	return balance, txn, nil
}
