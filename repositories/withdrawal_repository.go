package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CustomZone1/customzone/models"
)

var (
	ErrWithdrawalNotFound    = errors.New("withdrawal request not found")
	ErrWithdrawalAlreadyPaid = errors.New("withdrawal request is already paid")
)

type WithdrawalRepository interface {
	Create(ctx context.Context, exec SQLExecutor, w *models.Withdrawal) error
	GetByID(ctx context.Context, id int) (*models.Withdrawal, error)
	// MarkPaid — условный переход pending -> paid. Повторный вызов по той же
	// заявке возвращает ErrWithdrawalAlreadyPaid.
	MarkPaid(ctx context.Context, id int, processedAt time.Time) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID int) ([]models.Withdrawal, error)
	List(ctx context.Context, status *models.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error)
}

type postgresWithdrawalRepository struct {
	db *sql.DB
}

func NewPostgresWithdrawalRepository(db *sql.DB) WithdrawalRepository {
	return &postgresWithdrawalRepository{db: db}
}

func (r *postgresWithdrawalRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const withdrawalColumns = `id, reference, user_id, username, amount, payout_address, status, requested_at, processed_at`

func (r *postgresWithdrawalRepository) Create(ctx context.Context, exec SQLExecutor, w *models.Withdrawal) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO withdrawals (reference, user_id, username, amount, payout_address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, requested_at`

	err := executor.QueryRowContext(ctx, query,
		w.Reference, w.UserID, w.Username, w.Amount, w.PayoutAddress, w.Status,
	).Scan(&w.ID, &w.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *postgresWithdrawalRepository) scanOne(row *sql.Row) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	err := row.Scan(
		&w.ID, &w.Reference, &w.UserID, &w.Username, &w.Amount,
		&w.PayoutAddress, &w.Status, &w.RequestedAt, &w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *postgresWithdrawalRepository) GetByID(ctx context.Context, id int) (*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	w, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to find withdrawal request: %w", err)
	}
	return w, nil
}

func (r *postgresWithdrawalRepository) MarkPaid(ctx context.Context, id int, processedAt time.Time) (*models.Withdrawal, error) {
	query := `
		UPDATE withdrawals
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + withdrawalColumns

	w, err := r.scanOne(r.db.QueryRowContext(ctx, query,
		models.WithdrawalPaid, processedAt, id, models.WithdrawalPending,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalAlreadyPaid
		}
		return nil, fmt.Errorf("failed to mark withdrawal paid: %w", err)
	}
	return w, nil
}

func (r *postgresWithdrawalRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Withdrawal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make([]models.Withdrawal, 0)
	for rows.Next() {
		var w models.Withdrawal
		if scanErr := rows.Scan(
			&w.ID, &w.Reference, &w.UserID, &w.Username, &w.Amount,
			&w.PayoutAddress, &w.Status, &w.RequestedAt, &w.ProcessedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		withdrawals = append(withdrawals, w)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *postgresWithdrawalRepository) ListByUser(ctx context.Context, userID int) ([]models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 ORDER BY requested_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *postgresWithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *status)
		argID++
	}
	query += " ORDER BY requested_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
		argID++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, offset)
	}
	return r.list(ctx, query, args...)
}
