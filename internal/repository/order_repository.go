package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type OrderListQuery struct {
	UserID string // empty lists every user (admin)
	Status model.OrderStatus
	Page   int
	Limit  int
}

type OrderRepository interface {
	// Create stores the order with its items. ErrDuplicate on a reused idempotency key.
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id string) (model.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error)
	List(ctx context.Context, q OrderListQuery) ([]model.Order, int64, error)

	// The following are compare-and-swap updates. false means the order was
	// not in the expected state (or does not exist) and nothing was written.
	UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error)
	MarkPaid(ctx context.Context, id string, method model.PaymentMethod, at time.Time) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to model.PaymentStatus) (bool, error)
}
