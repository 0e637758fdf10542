package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// FilterNotificationsByRecipient returns userID's notifications, newest first.
		FilterNotificationsByRecipient(ctx context.Context, userID string) ([]Notification, error)
		// MarkNotificationRead flips the read flag conditionally on (id, userID) matching;
		// ErrNotFound otherwise.
		MarkNotificationRead(ctx context.Context, id, userID string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) ListFor(ctx context.Context, principal user.User) ([]Notification, error) {
	return svc.repo.FilterNotificationsByRecipient(ctx, principal.ID)
}

// MarkRead flips the read flag on one of the principal's own notifications.
// A notification that is absent or addressed to someone else is ErrNotFound.
func (svc *Service) MarkRead(ctx context.Context, principal user.User, id string) error {
	return svc.repo.MarkNotificationRead(ctx, id, principal.ID)
}
