package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CustomZone1/customzone/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Mode   *models.TournamentMode
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate берёт блокировку строки турнира: весь критический
	// участок бронирования (проверка вместимости, конфликт имён, вставка,
	// списание) сериализуется по турниру на этой блокировке.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	ListIDsByStatusNot(ctx context.Context, status models.TournamentStatus) ([]int, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	UpdateCounters(ctx context.Context, exec SQLExecutor, id int, bookedSlots, manualSoldSlots int, status models.TournamentStatus) error
	UpdateRoom(ctx context.Context, exec SQLExecutor, id int, roomID, roomPass string) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, mode, map_name, start_at, entry_fee, prize_pool,
	max_slots, manual_sold_slots, booked_slots, status, room_id, room_pass,
	banner_key, created_at`

func scanTournament(row *sql.Row, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Mode, &t.MapName, &t.StartAt,
		&t.EntryFee, &t.PrizePool, &t.MaxSlots, &t.ManualSoldSlots, &t.BookedSlots,
		&t.Status, &t.RoomID, &t.RoomPass, &t.BannerKey, &t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, mode, map_name, start_at, entry_fee, prize_pool,
			max_slots, manual_sold_slots, booked_slots, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Mode, t.MapName, t.StartAt, t.EntryFee, t.PrizePool,
		t.MaxSlots, t.ManualSoldSlots, t.BookedSlots, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) getByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	t := &models.Tournament{}
	err := scanTournament(executor.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, false)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, true)
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Mode != nil {
		query += fmt.Sprintf(" AND mode = $%d", argID)
		args = append(args, *filter.Mode)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.Mode, &t.MapName, &t.StartAt,
			&t.EntryFee, &t.PrizePool, &t.MaxSlots, &t.ManualSoldSlots, &t.BookedSlots,
			&t.Status, &t.RoomID, &t.RoomPass, &t.BannerKey, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) ListIDsByStatusNot(ctx context.Context, status models.TournamentStatus) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tournaments WHERE status <> $1 ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			mode = $3,
			map_name = $4,
			start_at = $5,
			entry_fee = $6,
			prize_pool = $7,
			max_slots = $8,
			status = $9
		WHERE id = $10`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Description, t.Mode, t.MapName, t.StartAt,
		t.EntryFee, t.PrizePool, t.MaxSlots, t.Status, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateCounters(ctx context.Context, exec SQLExecutor, id int, bookedSlots, manualSoldSlots int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET booked_slots = $1, manual_sold_slots = $2, status = $3 WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, bookedSlots, manualSoldSlots, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament counters for %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateRoom(ctx context.Context, exec SQLExecutor, id int, roomID, roomPass string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET room_id = $1, room_pass = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, roomID, roomPass, id)
	if err != nil {
		return fmt.Errorf("failed to publish room for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	// Бронирования и их member-строки удаляются каскадом по FK.
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
