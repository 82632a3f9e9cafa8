package memory

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartRepository relies on Store serializing transactions, so
// FindByUserIDForUpdate needs no extra locking.
type CartRepository struct {
	b backend
}

func (r *CartRepository) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	var (
		c  model.Cart
		ok bool
	)
	r.b.read(func(st *state) {
		c, ok = st.carts[userID]
		if ok {
			c = cloneCart(c)
		}
	})
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *CartRepository) FindByUserIDForUpdate(ctx context.Context, userID string) (model.Cart, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *CartRepository) GetOrCreateByUserID(ctx context.Context, userID string) (model.Cart, error) {
	var out model.Cart
	err := r.b.write(func(st *state) error {
		c, ok := st.carts[userID]
		if !ok {
			now := time.Now()
			c = model.Cart{
				ID:        uuid.NewString(),
				UserID:    userID,
				Total:     decimal.Zero,
				Items:     []model.CartItem{},
				CreatedAt: now,
				UpdatedAt: now,
			}
			st.carts[userID] = c
		}
		out = cloneCart(c)
		return nil
	})
	return out, err
}

func (r *CartRepository) Save(ctx context.Context, cart *model.Cart) error {
	cart.Recalculate()
	now := time.Now()
	for i := range cart.Items {
		if cart.Items[i].ID == "" {
			cart.Items[i].ID = uuid.NewString()
		}
		if cart.Items[i].CreatedAt.IsZero() {
			cart.Items[i].CreatedAt = now
		}
		cart.Items[i].CartID = cart.ID
	}

	return r.b.write(func(st *state) error {
		cur, ok := st.carts[cart.UserID]
		if !ok || cur.ID != cart.ID {
			return repo.ErrNotFound
		}
		cart.UpdatedAt = now
		st.carts[cart.UserID] = cloneCart(*cart)
		return nil
	})
}

var _ repo.CartRepository = (*CartRepository)(nil)
