package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CustomZone1/customzone/models"
	"github.com/lib/pq"
)

var (
	ErrDepositNotFound       = errors.New("deposit entry not found")
	ErrDepositTxnConflict    = errors.New("transaction id is already registered")
	ErrDepositAlreadyClaimed = errors.New("deposit entry is already claimed")
)

type DepositRepository interface {
	Create(ctx context.Context, deposit *models.AdminDeposit) error
	GetByNormalizedTxnID(ctx context.Context, exec SQLExecutor, normalizedTxnID string) (*models.AdminDeposit, error)
	// Claim атомарно переводит запись available -> claimed (compare-and-set).
	// Из двух конкурентных вызовов ровно один получает строку, второй —
	// ErrDepositAlreadyClaimed.
	Claim(ctx context.Context, exec SQLExecutor, normalizedTxnID string, userID int, username string, claimedAt time.Time) (*models.AdminDeposit, error)
	List(ctx context.Context, limit, offset int) ([]models.AdminDeposit, error)
}

type postgresDepositRepository struct {
	db *sql.DB
}

func NewPostgresDepositRepository(db *sql.DB) DepositRepository {
	return &postgresDepositRepository{db: db}
}

func (r *postgresDepositRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const depositColumns = `id, external_txn_id, normalized_txn_id, amount, note, status, registered_at, claimed_at, claimed_by_user_id, claimed_by_username`

func scanDeposit(row *sql.Row, d *models.AdminDeposit) error {
	return row.Scan(
		&d.ID, &d.ExternalTxnID, &d.NormalizedTxnID, &d.Amount, &d.Note,
		&d.Status, &d.RegisteredAt, &d.ClaimedAt, &d.ClaimedByUserID, &d.ClaimedByUsername,
	)
}

func (r *postgresDepositRepository) Create(ctx context.Context, d *models.AdminDeposit) error {
	query := `
		INSERT INTO admin_deposits (external_txn_id, normalized_txn_id, amount, note, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, registered_at`

	err := r.db.QueryRowContext(ctx, query,
		d.ExternalTxnID, d.NormalizedTxnID, d.Amount, d.Note, d.Status,
	).Scan(&d.ID, &d.RegisteredAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "admin_deposits_normalized_txn_id_key" {
				return ErrDepositTxnConflict
			}
		}
		return fmt.Errorf("failed to register deposit: %w", err)
	}
	return nil
}

func (r *postgresDepositRepository) GetByNormalizedTxnID(ctx context.Context, exec SQLExecutor, normalizedTxnID string) (*models.AdminDeposit, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + depositColumns + ` FROM admin_deposits WHERE normalized_txn_id = $1`

	d := &models.AdminDeposit{}
	err := scanDeposit(executor.QueryRowContext(ctx, query, normalizedTxnID), d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to find deposit entry: %w", err)
	}
	return d, nil
}

func (r *postgresDepositRepository) Claim(ctx context.Context, exec SQLExecutor, normalizedTxnID string, userID int, username string, claimedAt time.Time) (*models.AdminDeposit, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE admin_deposits
		SET status = $1, claimed_at = $2, claimed_by_user_id = $3, claimed_by_username = $4
		WHERE normalized_txn_id = $5 AND status = $6
		RETURNING ` + depositColumns

	d := &models.AdminDeposit{}
	err := scanDeposit(executor.QueryRowContext(ctx, query,
		models.DepositClaimed, claimedAt, userID, username,
		normalizedTxnID, models.DepositAvailable,
	), d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо записи нет, либо её уже кто-то забрал — различаем отдельным чтением.
			return nil, ErrDepositAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim deposit entry: %w", err)
	}
	return d, nil
}

func (r *postgresDepositRepository) List(ctx context.Context, limit, offset int) ([]models.AdminDeposit, error) {
	query := `SELECT ` + depositColumns + ` FROM admin_deposits ORDER BY registered_at DESC, id DESC`

	args := []interface{}{}
	argID := 1
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
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	deposits := make([]models.AdminDeposit, 0)
	for rows.Next() {
		var d models.AdminDeposit
		if scanErr := rows.Scan(
			&d.ID, &d.ExternalTxnID, &d.NormalizedTxnID, &d.Amount, &d.Note,
			&d.Status, &d.RegisteredAt, &d.ClaimedAt, &d.ClaimedByUserID, &d.ClaimedByUsername,
		); scanErr != nil {
			return nil, scanErr
		}
		deposits = append(deposits, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return deposits, nil
}
