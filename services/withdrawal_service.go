package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/repositories"
	"github.com/google/uuid"
)

// WithdrawalService обслуживает заявки на вывод. Средства резервируются
// сразу: списание происходит при создании заявки, отметка paid статусная.
type WithdrawalService struct {
	tx        repositories.Transactor
	repo      repositories.WithdrawalRepository
	wallet    *WalletService
	notifier  Notifier
	minAmount int64
}

func NewWithdrawalService(
	tx repositories.Transactor,
	repo repositories.WithdrawalRepository,
	wallet *WalletService,
	notifier Notifier,
	minAmount int64,
) *WithdrawalService {
	return &WithdrawalService{tx: tx, repo: repo, wallet: wallet, notifier: notifier, minAmount: minAmount}
}

// validPayoutAddress проверяет UPI-подобный адрес выплаты: name@provider.
func validPayoutAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	at := strings.Index(addr, "@")
	return at > 0 && at < len(addr)-1 && !strings.ContainsAny(addr, " \t")
}

// Request списывает сумму и создаёт PENDING-заявку одной транзакцией.
// При нехватке средств заявка не создаётся.
func (s *WithdrawalService) Request(ctx context.Context, userID int, username, payoutAddress string, amount int64) (*models.Withdrawal, error) {
	if amount < s.minAmount {
		return nil, ErrWithdrawalBelowMinimum
	}
	if !validPayoutAddress(payoutAddress) {
		return nil, ErrInvalidPayoutAddress
	}

	withdrawal := &models.Withdrawal{
		Reference:     uuid.NewString(),
		UserID:        userID,
		Username:      username,
		Amount:        amount,
		PayoutAddress: strings.TrimSpace(payoutAddress),
		Status:        models.WithdrawalPending,
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, _, err := s.wallet.DebitTx(ctx, exec, userID, amount,
			fmt.Sprintf("Withdrawal request %s", withdrawal.Reference)); err != nil {
			return err
		}
		return s.repo.Create(ctx, exec, withdrawal)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, userID, models.NotificationWithdrawal,
		"Withdrawal requested",
		fmt.Sprintf("Your withdrawal of %d to %s is pending.", amount, withdrawal.PayoutAddress),
	)
	return withdrawal, nil
}

// MarkPaid — условный переход pending -> paid; баланс уже списан при заявке.
// Повторное нажатие админа получает ErrWithdrawalAlreadyPaid, состояние
// не меняется.
func (s *WithdrawalService) MarkPaid(ctx context.Context, requestID int) (*models.Withdrawal, error) {
	if _, err := s.repo.GetByID(ctx, requestID); err != nil {
		if errors.Is(err, repositories.ErrWithdrawalNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}

	withdrawal, err := s.repo.MarkPaid(ctx, requestID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrWithdrawalAlreadyPaid) {
			return nil, ErrWithdrawalAlreadyPaid
		}
		return nil, err
	}

	s.notifier.Notify(ctx, withdrawal.UserID, models.NotificationWithdrawal,
		"Withdrawal paid",
		fmt.Sprintf("Your withdrawal of %d to %s has been paid.", withdrawal.Amount, withdrawal.PayoutAddress),
	)
	return withdrawal, nil
}

func (s *WithdrawalService) ListByUser(ctx context.Context, userID int) ([]models.Withdrawal, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *WithdrawalService) List(ctx context.Context, status *models.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error) {
	return s.repo.List(ctx, status, limit, offset)
}
