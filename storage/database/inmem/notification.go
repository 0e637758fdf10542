package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = uuid.New().String()
	repo.db.notifications[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) FilterNotificationsByRecipient(_ context.Context, userID string) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ns := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID == userID {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	if len(ns) > 100 {
		ns = ns[:100]
	}
	return ns, nil
}

func (repo *notificationRepository) MarkNotificationRead(_ context.Context, id, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if n, ok := repo.db.notifications[id]; ok && n.UserID == userID {
		n.Read = true
		return nil
	}
	return notification.ErrNotFound
}
