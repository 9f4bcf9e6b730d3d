package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/repository"
)

var ErrNotFound = errors.New("not_found")

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id, userID int64, now time.Time) error
	MarkAllRead(ctx context.Context, userID int64, now time.Time) (int64, error)
}

type Service struct {
	notifications NotificationRepositoryInterface
	hub           *Hub
}

func NewService(notifications NotificationRepositoryInterface, hub *Hub) *Service {
	return &Service{notifications: notifications, hub: hub}
}

// Notify persists a notification and pushes it to the user's live
// connection if any. Job handlers call this; duplicates from job
// retries are acceptable, loss is not.
func (s *Service) Notify(ctx context.Context, userID int64, t domain.NotificationType, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	n := &domain.Notification{
		UserID: userID,
		Type:   t,
		Data:   raw,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	s.hub.Push(userID, n)
	return nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByUser(ctx, userID, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	err := s.notifications.MarkRead(ctx, id, userID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID, time.Now())
}
