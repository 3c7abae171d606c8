package services

import (
	"context"
	"log/slog"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/repositories"
)

// Notifier доставляет уведомление пользователю. Доставка best-effort:
// сбой не должен влиять на вызвавшую операцию, ошибок наружу нет.
type Notifier interface {
	Notify(ctx context.Context, userID int, typ models.NotificationType, title, body string)
}

type NotificationService struct {
	repo   repositories.NotificationRepository
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

func (s *NotificationService) Notify(ctx context.Context, userID int, typ models.NotificationType, title, body string) {
	n := &models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "failed to deliver notification",
			slog.Int("user_id", userID),
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}

func (s *NotificationService) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) error {
	return s.repo.MarkAllRead(ctx, userID)
}
