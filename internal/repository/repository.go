package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
)

// Transactor runs fn inside one transaction carried by the context. A nested
// call joins the outer transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists the order aggregate: the order row plus its
// items, events, disputes, and extension/return requests.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// GetForUpdate loads the aggregate holding a row lock on the order until
	// the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// Save writes the aggregate. The order row is only updated while its
	// stored status still equals expected.
	Save(ctx context.Context, order *domain.Order, expected domain.OrderStatus) error
	ListExpiredPendingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
	// ListOrders returns one page of order rows, newest first, and the total
	// number of matches. Child collections are not loaded.
	ListOrders(ctx context.Context, filter OrderFilter, limit, offset int32) ([]domain.Order, int32, error)
}

// OrderFilter narrows ListOrders. Zero fields match every order.
type OrderFilter struct {
	UserID   *uuid.UUID
	VendorID *uuid.UUID
	Status   domain.OrderStatus
}

// DisputeRef locates a dispute inside its order aggregate
type DisputeRef struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

type DisputeRepository interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Dispute, error)
	GetRef(ctx context.Context, id uuid.UUID) (*DisputeRef, error)
	ListOverdueOpen(ctx context.Context, now time.Time, limit int) ([]DisputeRef, error)
	// ListDueForReminder returns OPEN disputes whose deadline lies within
	// [now, now+window] and whose reminder level is still below level.
	ListDueForReminder(ctx context.Context, now time.Time, window time.Duration, level, limit int) ([]DisputeRef, error)
}

type ProofRepository interface {
	Create(ctx context.Context, proof *domain.Proof) error
	FindByIDAndOrder(ctx context.Context, id, orderID uuid.UUID) (*domain.Proof, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Proof, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, recipientID uuid.UUID, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int64, recipientID uuid.UUID) error
}
