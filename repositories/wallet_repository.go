package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CustomZone1/customzone/models"
)

var ErrWalletNotFound = errors.New("wallet not found")

type WalletRepository interface {
	// GetBalanceForUpdate лениво создаёт кошелёк и берёт блокировку строки.
	// Все конкурентные операции по одному пользователю сериализуются на ней.
	GetBalanceForUpdate(ctx context.Context, exec SQLExecutor, userID int) (int64, error)
	GetBalance(ctx context.Context, userID int) (int64, error)
	SetBalance(ctx context.Context, exec SQLExecutor, userID int, balance int64) error
	AppendTransaction(ctx context.Context, exec SQLExecutor, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID int, limit, offset int) ([]models.WalletTransaction, error)
}

type postgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) WalletRepository {
	return &postgresWalletRepository{db: db}
}

func (r *postgresWalletRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWalletRepository) GetBalanceForUpdate(ctx context.Context, exec SQLExecutor, userID int) (int64, error) {
	executor := r.getExecutor(exec)

	_, err := executor.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize wallet for user %d: %w", userID, err)
	}

	var balance int64
	err = executor.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}
	return balance, nil
}

func (r *postgresWalletRepository) GetBalance(ctx context.Context, userID int) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Кошелёк ещё не создан — баланс нулевой, это не ошибка.
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance for user %d: %w", userID, err)
	}
	return balance, nil
}

func (r *postgresWalletRepository) SetBalance(ctx context.Context, exec SQLExecutor, userID int, balance int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE wallets SET balance = $1 WHERE user_id = $2`,
		balance, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrWalletNotFound)
}

func (r *postgresWalletRepository) AppendTransaction(ctx context.Context, exec SQLExecutor, txn *models.WalletTransaction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO wallet_transactions (user_id, direction, amount, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		txn.UserID, txn.Direction, txn.Amount, txn.Note,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return nil
}

func (r *postgresWalletRepository) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, direction, amount, note, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	args := []interface{}{userID}
	argID := 2
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
		argID++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]models.WalletTransaction, 0)
	for rows.Next() {
		var t models.WalletTransaction
		if scanErr := rows.Scan(&t.ID, &t.UserID, &t.Direction, &t.Amount, &t.Note, &t.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		txns = append(txns, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}
