package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CustomZone1/customzone/models"
	"github.com/lib/pq"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingNameConflict = errors.New("player name is already booked in this tournament")
	ErrBookingSlotConflict = errors.New("slot number is already taken in this tournament")
)

type BookingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, booking *models.Booking) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Booking, error)
	FindByUserAndTournament(ctx context.Context, tournamentID, userID int) (*models.Booking, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Booking, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	MaxSlotNumber(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateMembers(ctx context.Context, exec SQLExecutor, id int, playerName string, members []string) error
	// ReplaceMemberKeys перезаписывает нормализованные имена брони. Уникальный
	// индекс (tournament_id, name_key) ловит пересечение с чужими бронями.
	ReplaceMemberKeys(ctx context.Context, exec SQLExecutor, bookingID, tournamentID int, nameKeys []string) error
	InsertMemberKeys(ctx context.Context, exec SQLExecutor, bookingID, tournamentID int, nameKeys []string) error
	AnyMemberKeyExists(ctx context.Context, exec SQLExecutor, tournamentID int, nameKeys []string) (bool, error)
}

type postgresBookingRepository struct {
	db *sql.DB
}

func NewPostgresBookingRepository(db *sql.DB) BookingRepository {
	return &postgresBookingRepository{db: db}
}

func (r *postgresBookingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const bookingColumns = `id, tournament_id, user_id, username, player_name, team_members, slot_number, created_at`

func (r *postgresBookingRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Booking) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bookings (tournament_id, user_id, username, player_name, team_members, slot_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		b.TournamentID, b.UserID, b.Username, b.PlayerName, pq.Array(b.TeamMembers), b.SlotNumber,
	).Scan(&b.ID, &b.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "bookings_tournament_id_slot_number_key" {
				return ErrBookingSlotConflict
			}
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *postgresBookingRepository) scanOne(row *sql.Row) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.TournamentID, &b.UserID, &b.Username, &b.PlayerName,
		pq.Array(&b.TeamMembers), &b.SlotNumber, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *postgresBookingRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Booking, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := r.scanOne(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking %d: %w", id, err)
	}
	return b, nil
}

func (r *postgresBookingRepository) FindByUserAndTournament(ctx context.Context, tournamentID, userID int) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tournament_id = $1 AND user_id = $2 ORDER BY created_at ASC LIMIT 1`
	b, err := r.scanOne(r.db.QueryRowContext(ctx, query, tournamentID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}

func (r *postgresBookingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Booking, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tournament_id = $1 ORDER BY slot_number ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		if scanErr := rows.Scan(
			&b.ID, &b.TournamentID, &b.UserID, &b.Username, &b.PlayerName,
			pq.Array(&b.TeamMembers), &b.SlotNumber, &b.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		bookings = append(bookings, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *postgresBookingRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresBookingRepository) MaxSlotNumber(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var max int
	err := executor.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(slot_number), 0) FROM bookings WHERE tournament_id = $1`, tournamentID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max slot number for tournament %d: %w", tournamentID, err)
	}
	return max, nil
}

func (r *postgresBookingRepository) UpdateMembers(ctx context.Context, exec SQLExecutor, id int, playerName string, members []string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE bookings SET player_name = $1, team_members = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, playerName, pq.Array(members), id)
	if err != nil {
		return fmt.Errorf("failed to update booking members: %w", err)
	}
	return checkAffectedRows(result, ErrBookingNotFound)
}

func (r *postgresBookingRepository) InsertMemberKeys(ctx context.Context, exec SQLExecutor, bookingID, tournamentID int, nameKeys []string) error {
	executor := r.getExecutor(exec)
	for _, key := range nameKeys {
		_, err := executor.ExecContext(ctx,
			`INSERT INTO booking_members (booking_id, tournament_id, name_key) VALUES ($1, $2, $3)`,
			bookingID, tournamentID, key,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				if pqErr.Constraint == "booking_members_tournament_id_name_key_key" {
					return ErrBookingNameConflict
				}
			}
			return fmt.Errorf("failed to insert booking member %q: %w", key, err)
		}
	}
	return nil
}

func (r *postgresBookingRepository) AnyMemberKeyExists(ctx context.Context, exec SQLExecutor, tournamentID int, nameKeys []string) (bool, error) {
	if len(nameKeys) == 0 {
		return false, nil
	}
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM booking_members WHERE tournament_id = $1 AND name_key = ANY($2))`,
		tournamentID, pq.Array(nameKeys),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check booking member conflicts: %w", err)
	}
	return exists, nil
}

func (r *postgresBookingRepository) ReplaceMemberKeys(ctx context.Context, exec SQLExecutor, bookingID, tournamentID int, nameKeys []string) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx,
		`DELETE FROM booking_members WHERE booking_id = $1`, bookingID,
	); err != nil {
		return fmt.Errorf("failed to clear booking members: %w", err)
	}
	return r.InsertMemberKeys(ctx, exec, bookingID, tournamentID, nameKeys)
}
