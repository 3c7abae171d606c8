package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/repositories"
	"github.com/CustomZone1/customzone/storage"
	"golang.org/x/sync/errgroup"
)

const reconcileConcurrency = 8

// TournamentService управляет каталогом турниров и является единственной
// точкой пересчёта производных счётчиков (booked_slots, status,
// manual_sold_slots). Хранимые значения — только кеш: авторитет всегда
// пересчёт из живых бронирований.
type TournamentService struct {
	tx          repositories.Transactor
	repo        repositories.TournamentRepository
	bookingRepo repositories.BookingRepository
	uploader    storage.FileUploader
	notifier    Notifier
	logger      *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	repo repositories.TournamentRepository,
	bookingRepo repositories.BookingRepository,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		tx:          tx,
		repo:        repo,
		bookingRepo: bookingRepo,
		uploader:    uploader,
		notifier:    notifier,
		logger:      logger,
	}
}

type TournamentInput struct {
	Name        string                `json:"name"`
	Description *string               `json:"description"`
	Mode        models.TournamentMode `json:"mode"`
	MapName     *string               `json:"map_name"`
	StartAt     string                `json:"start_at"`
	EntryFee    int64                 `json:"entry_fee"`
	PrizePool   int64                 `json:"prize_pool"`
	MaxSlots    int                   `json:"max_slots"`
	Completed   bool                  `json:"completed"`
}

func (in *TournamentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrTournamentNameRequired
	}
	if !in.Mode.IsValid() {
		return ErrTournamentInvalidMode
	}
	if in.EntryFee < 0 {
		return ErrInvalidAmount
	}
	// Для брекет-режимов вместимость фиксирована режимом.
	if fixed := in.Mode.MaxSlotsFor(); fixed > 0 {
		in.MaxSlots = fixed
	} else if in.MaxSlots <= 0 {
		return ErrTournamentInvalidCapacity
	}
	return nil
}

func (s *TournamentService) Create(ctx context.Context, input TournamentInput) (*models.Tournament, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Mode:        input.Mode,
		MapName:     input.MapName,
		StartAt:     strings.TrimSpace(input.StartAt),
		EntryFee:    input.EntryFee,
		PrizePool:   input.PrizePool,
		MaxSlots:    input.MaxSlots,
		Status:      models.StatusOpen,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TournamentService) Update(ctx context.Context, id int, input TournamentInput) (*models.Tournament, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var updated *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		t.Name = strings.TrimSpace(input.Name)
		t.Description = input.Description
		t.Mode = input.Mode
		t.MapName = input.MapName
		t.StartAt = strings.TrimSpace(input.StartAt)
		t.EntryFee = input.EntryFee
		t.PrizePool = input.PrizePool
		t.MaxSlots = input.MaxSlots
		// completed липкий: админ может выставить, пересчёт не снимает.
		if input.Completed {
			t.Status = models.StatusCompleted
		}

		// Сначала поля каталога, затем пересчёт производных счётчиков:
		// новый max_slots влияет на clamp и статус.
		if err := s.repo.Update(ctx, exec, t); err != nil {
			return err
		}
		if _, err := s.recalcLocked(ctx, exec, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.populateBannerURL(updated)
	return updated, nil
}

func (s *TournamentService) Delete(ctx context.Context, id int) error {
	t, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	if t.BannerKey != nil && *t.BannerKey != "" && s.uploader != nil {
		if delErr := s.uploader.Delete(ctx, *t.BannerKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament banner",
				slog.Int("tournament_id", id), slog.Any("error", delErr))
		}
	}
	return nil
}

// GetForViewer возвращает турнир; данные комнаты видны только забронировавшим
// пользователям и администраторам.
func (s *TournamentService) GetForViewer(ctx context.Context, id int, viewerID int, isAdmin bool) (*models.Tournament, error) {
	t, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.populateBannerURL(t)

	if isAdmin || !t.RoomPublished() {
		return t, nil
	}

	visible := false
	if viewerID > 0 {
		if _, err := s.bookingRepo.FindByUserAndTournament(ctx, id, viewerID); err == nil {
			visible = true
		} else if !errors.Is(err, repositories.ErrBookingNotFound) {
			return nil, err
		}
	}
	if !visible {
		t.RoomID = nil
		t.RoomPass = nil
	}
	return t, nil
}

func (s *TournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		// Комната в списке не раскрывается.
		tournaments[i].RoomID = nil
		tournaments[i].RoomPass = nil
		s.populateBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

// RecalcResult — результат пересчёта счётчиков турнира.
type RecalcResult struct {
	OnlineBookedCount int                     `json:"online_booked_count"`
	ManualSoldSlots   int                     `json:"manual_sold_slots"`
	BookedCount       int                     `json:"booked_count"`
	Status            models.TournamentStatus `json:"status"`
}

// recalcLocked пересчитывает счётчики турнира, строка которого уже
// заблокирована в exec. Онлайн-бронирования имеют приоритет над ручными
// продажами: manual ужимается до свободного остатка. completed липкий.
func (s *TournamentService) recalcLocked(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (RecalcResult, error) {
	online, err := s.bookingRepo.CountByTournament(ctx, exec, t.ID)
	if err != nil {
		return RecalcResult{}, err
	}

	manual := clampInt(t.ManualSoldSlots, 0, t.MaxSlots-online)
	booked := minInt(t.MaxSlots, online+manual)

	status := t.Status
	if status != models.StatusCompleted {
		if booked >= t.MaxSlots {
			status = models.StatusFull
		} else {
			status = models.StatusOpen
		}
	}

	if err := s.repo.UpdateCounters(ctx, exec, t.ID, booked, manual, status); err != nil {
		return RecalcResult{}, err
	}

	t.BookedSlots = booked
	t.ManualSoldSlots = manual
	t.Status = status

	return RecalcResult{
		OnlineBookedCount: online,
		ManualSoldSlots:   manual,
		BookedCount:       booked,
		Status:            status,
	}, nil
}

// Recalc пересчитывает счётчики одного турнира в собственной транзакции.
func (s *TournamentService) Recalc(ctx context.Context, id int) (RecalcResult, error) {
	var result RecalcResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		result, err = s.recalcLocked(ctx, exec, t)
		return err
	})
	return result, err
}

// SetManualSoldSlots задаёт количество офлайн-продаж. Значение ужимается
// пересчётом к свободному остатку.
func (s *TournamentService) SetManualSoldSlots(ctx context.Context, id, count int) (RecalcResult, error) {
	if count < 0 {
		return RecalcResult{}, ErrManualSlotsNegative
	}

	var result RecalcResult
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		t.ManualSoldSlots = count
		result, err = s.recalcLocked(ctx, exec, t)
		return err
	})
	return result, err
}

// PublishRoom публикует данные комнаты, что закрывает дальнейшее
// бронирование, и уведомляет всех забронировавших.
func (s *TournamentService) PublishRoom(ctx context.Context, id int, roomID, roomPass string) (*models.Tournament, error) {
	roomID = strings.TrimSpace(roomID)
	roomPass = strings.TrimSpace(roomPass)
	if roomID == "" || roomPass == "" {
		return nil, ErrRoomCredentialsRequired
	}

	var (
		tournament *models.Tournament
		booked     []models.Booking
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if err := s.repo.UpdateRoom(ctx, exec, id, roomID, roomPass); err != nil {
			return err
		}
		t.RoomID = &roomID
		t.RoomPass = &roomPass

		if _, err := s.recalcLocked(ctx, exec, t); err != nil {
			return err
		}

		booked, err = s.bookingRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range booked {
		s.notifier.Notify(ctx, b.UserID, models.NotificationRoom,
			"Room published",
			fmt.Sprintf("Room details for %s are out. Room ID: %s, pass: %s. Your slot: %d.",
				tournament.Name, roomID, roomPass, b.SlotNumber),
		)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

// ReconcileAll пересчитывает счётчики всех незавершённых турниров.
// Запускается планировщиком для починки возможного дрейфа кеша.
func (s *TournamentService) ReconcileAll(ctx context.Context) error {
	ids, err := s.repo.ListIDsByStatusNot(ctx, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to list tournaments for reconciliation: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := s.Recalc(gCtx, id); err != nil {
				s.logger.WarnContext(gCtx, "tournament reconciliation failed",
					slog.Int("tournament_id", id), slog.Any("error", err))
			}
			return nil
		})
	}
	return g.Wait()
}

// UploadBanner загружает баннер турнира в объектное хранилище.
func (s *TournamentService) UploadBanner(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, errors.New("file uploader is not configured")
	}

	t, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("tournaments/%d/banner_%d%s", id, time.Now().UnixNano(), ext)

	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	oldKey := t.BannerKey
	if err := s.repo.UpdateBannerKey(ctx, id, &key); err != nil {
		return nil, err
	}
	t.BannerKey = &key

	if oldKey != nil && *oldKey != "" {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous banner",
				slog.Int("tournament_id", id), slog.Any("error", delErr))
		}
	}

	s.populateBannerURL(t)
	return t, nil
}

func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported banner content type: %q", contentType)
	}
}

func (s *TournamentService) populateBannerURL(t *models.Tournament) {
	if t != nil && t.BannerKey != nil && *t.BannerKey != "" && s.uploader != nil {
		if url := s.uploader.GetPublicURL(*t.BannerKey); url != "" {
			t.BannerURL = &url
		}
	}
}
