// Package usecases - notify.go stores in-app notifications and forwards them as pushes.
package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// NotificationUseCase records notifications and hands them to a push sender.
type NotificationUseCase struct {
	notifications ports.NotificationRepository
	users         ports.UserRepository
	push          ports.PushSender
	logger        *zap.Logger
	now           func() time.Time
}

// NewNotificationUseCase creates a NotificationUseCase. push may be nil.
func NewNotificationUseCase(
	notifications ports.NotificationRepository,
	users ports.UserRepository,
	push ports.PushSender,
	logger *zap.Logger,
) *NotificationUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationUseCase{
		notifications: notifications,
		users:         users,
		push:          push,
		logger:        logger,
		now:           time.Now,
	}
}

// Notify stores a notification for userID and pushes it to the user's
// device. Push failures are logged and never returned.
func (uc *NotificationUseCase) Notify(ctx context.Context, userID, title, body string) (*entities.Notification, error) {
	n := &entities.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: uc.now(),
	}
	if err := uc.notifications.SaveNotification(ctx, n); err != nil {
		return nil, err
	}

	if uc.push == nil {
		return n, nil
	}
	user, err := uc.users.GetUser(ctx, userID)
	if err != nil {
		uc.logger.Warn("push skipped, user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return n, nil
	}
	if user.PushToken == "" {
		return n, nil
	}
	if err := uc.push.Send(ctx, user.PushToken, title, body); err != nil {
		uc.logger.Warn("push delivery failed", zap.String("user_id", userID), zap.Error(err))
	}
	return n, nil
}

// List returns the notifications of userID, newest first.
func (uc *NotificationUseCase) List(ctx context.Context, userID string) ([]entities.Notification, error) {
	return uc.notifications.ListNotifications(ctx, userID)
}

// MarkRead flags one notification of userID as read.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, id string) error {
	return uc.notifications.MarkNotificationRead(ctx, userID, id)
}

// RegisterDevice stores the push token of the user's device.
func (uc *NotificationUseCase) RegisterDevice(ctx context.Context, userID, token string) error {
	return uc.users.SetPushToken(ctx, userID, strings.TrimSpace(token))
}
