package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/repositories"
)

// DepositService ведёт реестр вручную проверенных платежей и выдаёт их
// пользователям ровно один раз. Перевод available -> claimed и зачисление
// на кошелёк выполняются в одной транзакции: запись не может остаться
// claimed без соответствующего кредита.
type DepositService struct {
	tx       repositories.Transactor
	repo     repositories.DepositRepository
	wallet   *WalletService
	notifier Notifier
}

func NewDepositService(tx repositories.Transactor, repo repositories.DepositRepository, wallet *WalletService, notifier Notifier) *DepositService {
	return &DepositService{tx: tx, repo: repo, wallet: wallet, notifier: notifier}
}

type ClaimResult struct {
	Amount  int64 `json:"amount"`
	Balance int64 `json:"balance"`
}

// normalizeTxnID приводит внешний id платежа к каноничному виду:
// без пробелов (включая внутренние), в нижнем регистре.
func normalizeTxnID(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), ""))
}

// Register добавляет проверенный админом платёж в реестр.
func (s *DepositService) Register(ctx context.Context, externalTxnID string, amount int64, note string) (*models.AdminDeposit, error) {
	normalized := normalizeTxnID(externalTxnID)
	if normalized == "" {
		return nil, ErrTxnIDRequired
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	deposit := &models.AdminDeposit{
		ExternalTxnID:   strings.TrimSpace(externalTxnID),
		NormalizedTxnID: normalized,
		Amount:          amount,
		Note:            note,
		Status:          models.DepositAvailable,
	}
	if err := s.repo.Create(ctx, deposit); err != nil {
		if errors.Is(err, repositories.ErrDepositTxnConflict) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}
	return deposit, nil
}

// Claim выдаёт депозит пользователю. Из двух конкурентных заявок на один
// и тот же id выигрывает ровно одна, вторая получает ErrTxnAlreadyClaimed.
func (s *DepositService) Claim(ctx context.Context, userID int, username, externalTxnID string) (*ClaimResult, error) {
	normalized := normalizeTxnID(externalTxnID)
	if normalized == "" {
		return nil, ErrTxnIDRequired
	}

	var result ClaimResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		existing, err := s.repo.GetByNormalizedTxnID(ctx, exec, normalized)
		if err != nil {
			if errors.Is(err, repositories.ErrDepositNotFound) {
				return ErrTxnNotFound
			}
			return err
		}
		if existing.Status == models.DepositClaimed {
			return ErrTxnAlreadyClaimed
		}

		claimed, err := s.repo.Claim(ctx, exec, normalized, userID, username, time.Now().UTC())
		if err != nil {
			if errors.Is(err, repositories.ErrDepositAlreadyClaimed) {
				return ErrTxnAlreadyClaimed
			}
			return err
		}

		balance, _, err := s.wallet.CreditTx(ctx, exec, userID, claimed.Amount,
			fmt.Sprintf("Deposit %s", claimed.ExternalTxnID))
		if err != nil {
			return err
		}

		result = ClaimResult{Amount: claimed.Amount, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, userID, models.NotificationDeposit,
		"Deposit claimed",
		fmt.Sprintf("%d added to your wallet for transaction %s. New balance: %d.",
			result.Amount, strings.TrimSpace(externalTxnID), result.Balance),
	)
	return &result, nil
}

func (s *DepositService) List(ctx context.Context, limit, offset int) ([]models.AdminDeposit, error) {
	return s.repo.List(ctx, limit, offset)
}
