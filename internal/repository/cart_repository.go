package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// CartRepository loads and stores the cart aggregate with its items.
type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (model.Cart, error)
	// Inside a transaction the returned cart stays locked until commit.
	GetOrCreateByUserID(ctx context.Context, userID string) (model.Cart, error)
	FindByUserIDForUpdate(ctx context.Context, userID string) (model.Cart, error)
	// Save writes the total and replaces the item lines.
	Save(ctx context.Context, cart *model.Cart) error
}
