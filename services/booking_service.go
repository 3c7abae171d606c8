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

// editCutoff — за сколько до старта турнира закрывается правка состава.
const editCutoff = time.Hour

// BookingService распределяет слоты турниров. Весь критический участок
// (вместимость, конфликт имён, вставка, списание взноса, пересчёт счётчиков)
// выполняется в одной транзакции под блокировкой строки турнира: две
// одновременные брони на последний слот или на одно имя не проходят обе.
// Неудачное списание откатывает транзакцию — брони без оплаты не бывает.
type BookingService struct {
	tx             repositories.Transactor
	repo           repositories.BookingRepository
	tournamentRepo repositories.TournamentRepository
	wallet         *WalletService
	tournaments    *TournamentService
	notifier       Notifier
	now            func() time.Time
}

func NewBookingService(
	tx repositories.Transactor,
	repo repositories.BookingRepository,
	tournamentRepo repositories.TournamentRepository,
	wallet *WalletService,
	tournaments *TournamentService,
	notifier Notifier,
) *BookingService {
	return &BookingService{
		tx:             tx,
		repo:           repo,
		tournamentRepo: tournamentRepo,
		wallet:         wallet,
		tournaments:    tournaments,
		notifier:       notifier,
		now:            time.Now,
	}
}

type CreateBookingInput struct {
	TournamentID int
	UserID       int
	Username     string
	PlayerName   string
	TeamMembers  []string
}

// Create бронирует слот. Порядок проверок: существование турнира,
// конфликт имён, вместимость, закрытая комната; затем вставка, списание
// взноса и пересчёт.
func (s *BookingService) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	if strings.TrimSpace(input.PlayerName) == "" {
		input.PlayerName = input.Username
	}

	booking := &models.Booking{
		TournamentID: input.TournamentID,
		UserID:       input.UserID,
		Username:     input.Username,
	}

	var tournamentName string
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, input.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		tournamentName = t.Name

		members := normalizeMembers(input.TeamMembers, input.PlayerName, t.Mode.TeamSize())
		if len(members) == 0 {
			return ErrEmptyRoster
		}
		keys := memberNameKeys(members)

		conflict, err := s.repo.AnyMemberKeyExists(ctx, exec, t.ID, keys)
		if err != nil {
			return err
		}
		if conflict {
			return ErrNameConflict
		}

		online, err := s.repo.CountByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		manual := clampInt(t.ManualSoldSlots, 0, t.MaxSlots-online)
		if t.Status == models.StatusCompleted || online+manual >= t.MaxSlots {
			return ErrTournamentFull
		}

		if t.RoomPublished() {
			return ErrBookingClosed
		}

		maxSlot, err := s.repo.MaxSlotNumber(ctx, exec, t.ID)
		if err != nil {
			return err
		}

		booking.PlayerName = members[0]
		booking.TeamMembers = members
		booking.SlotNumber = maxSlot + 1

		if err := s.repo.Create(ctx, exec, booking); err != nil {
			return err
		}
		if err := s.repo.InsertMemberKeys(ctx, exec, booking.ID, t.ID, keys); err != nil {
			if errors.Is(err, repositories.ErrBookingNameConflict) {
				return ErrNameConflict
			}
			return err
		}

		// Взнос списывается в той же транзакции: нехватка средств
		// откатывает и только что созданную бронь.
		if t.EntryFee > 0 {
			if _, _, err := s.wallet.DebitTx(ctx, exec, input.UserID, t.EntryFee,
				fmt.Sprintf("Entry fee for %s", t.Name)); err != nil {
				return err
			}
		}

		_, err = s.tournaments.recalcLocked(ctx, exec, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, input.UserID, models.NotificationBooking,
		"Slot booked",
		fmt.Sprintf("Slot #%d in %s is yours. Team: %s.",
			booking.SlotNumber, tournamentName, strings.Join(booking.TeamMembers, ", ")),
	)
	return booking, nil
}

// UpdateMembers меняет состав команды существующей брони. Править может
// только владелец и только до закрытия окна (за час до старта; если время
// старта не парсится, окно не ограничено).
func (s *BookingService) UpdateMembers(ctx context.Context, tournamentID, userID, bookingID int, newMembers []string) (*models.Booking, error) {
	var updated *models.Booking
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		booking, err := s.repo.GetByID(ctx, exec, bookingID)
		if err != nil {
			if errors.Is(err, repositories.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.TournamentID != tournamentID {
			return ErrBookingNotFound
		}
		if booking.UserID != userID {
			return ErrForbiddenOperation
		}

		if startAt, ok := parseStartAt(t.StartAt); ok {
			if s.now().After(startAt.Add(-editCutoff)) {
				return ErrEditWindowClosed
			}
		}

		members := normalizeMembers(newMembers, "", t.Mode.TeamSize())
		if len(members) == 0 {
			return ErrEmptyRoster
		}
		keys := memberNameKeys(members)

		// Свои старые имена заменяются первым шагом, уникальный индекс
		// проверяет пересечение только с чужими бронями.
		if err := s.repo.ReplaceMemberKeys(ctx, exec, booking.ID, tournamentID, keys); err != nil {
			if errors.Is(err, repositories.ErrBookingNameConflict) {
				return ErrNameConflict
			}
			return err
		}
		if err := s.repo.UpdateMembers(ctx, exec, booking.ID, members[0], members); err != nil {
			return err
		}

		booking.PlayerName = members[0]
		booking.TeamMembers = members
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetOwn возвращает бронь пользователя в турнире.
func (s *BookingService) GetOwn(ctx context.Context, tournamentID, userID int) (*models.Booking, error) {
	booking, err := s.repo.FindByUserAndTournament(ctx, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Booking, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.repo.ListByTournament(ctx, nil, tournamentID)
}
