package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
)

type notificationRepository struct {
	s *state
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.s.do(ctx, func() error {
		r.s.nextNotificationID++
		n.ID = r.s.nextNotificationID
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		r.s.notifications = append(r.s.notifications, *n)
		return nil
	})
}

func (r *notificationRepository) List(ctx context.Context, recipientID uuid.UUID, limit, offset int32) ([]domain.Notification, int32, error) {
	var page []domain.Notification
	var count int32
	err := r.s.do(ctx, func() error {
		var mine []domain.Notification
		for _, n := range r.s.notifications {
			if n.RecipientID == recipientID {
				mine = append(mine, n)
			}
		}
		sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
		count = int32(len(mine))
		if int(offset) >= len(mine) {
			return nil
		}
		end := len(mine)
		if limit > 0 && int(offset+limit) < end {
			end = int(offset + limit)
		}
		page = mine[offset:end]
		return nil
	})
	return page, count, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id int64, recipientID uuid.UUID) error {
	return r.s.do(ctx, func() error {
		for i := range r.s.notifications {
			if n := &r.s.notifications[i]; n.ID == id && n.RecipientID == recipientID {
				r.s.touchNotification(i)
				n.IsRead = true
				return nil
			}
		}
		return domain.NotFoundf("notification not found or access denied")
	})
}
