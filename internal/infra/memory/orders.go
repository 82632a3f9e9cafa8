package memory

import (
	"context"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type OrderRepository struct {
	b backend
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		o.Items[i].OrderID = o.ID
		o.Items[i].Position = i
	}

	return r.b.write(func(st *state) error {
		if _, exists := st.orders[o.ID]; exists {
			return repo.ErrDuplicate
		}
		if o.IdempotencyKey != nil {
			for _, other := range st.orders {
				if other.UserID == o.UserID && other.IdempotencyKey != nil && *other.IdempotencyKey == *o.IdempotencyKey {
					return repo.ErrDuplicate
				}
			}
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (model.Order, error) {
	var (
		o  model.Order
		ok bool
	)
	r.b.read(func(st *state) {
		o, ok = st.orders[id]
		if ok {
			o = cloneOrder(o)
		}
	})
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var (
		found model.Order
		ok    bool
	)
	r.b.read(func(st *state) {
		for _, o := range st.orders {
			if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
				found, ok = cloneOrder(o), true
				return
			}
		}
	})
	return found, ok, nil
}

func (r *OrderRepository) List(ctx context.Context, q repo.OrderListQuery) ([]model.Order, int64, error) {
	var matched []model.Order
	r.b.read(func(st *state) {
		for _, o := range st.orders {
			if q.UserID != "" && o.UserID != q.UserID {
				continue
			}
			if q.Status != "" && o.Status != q.Status {
				continue
			}
			matched = append(matched, cloneOrder(o))
		}
	})

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, q.Page, q.Limit), int64(len(matched)), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	return r.swap(id, func(o *model.Order) bool {
		if o.Status != from {
			return false
		}
		o.Status = to
		return true
	})
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, method model.PaymentMethod, at time.Time) (bool, error) {
	return r.swap(id, func(o *model.Order) bool {
		return o.ApplyPayment(method, at) == nil
	})
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, from, to model.PaymentStatus) (bool, error) {
	return r.swap(id, func(o *model.Order) bool {
		if o.PaymentStatus != from {
			return false
		}
		o.PaymentStatus = to
		return true
	})
}

// swap applies fn to the stored order and keeps the result only if fn reports a change.
func (r *OrderRepository) swap(id string, fn func(o *model.Order) bool) (bool, error) {
	changed := false
	err := r.b.write(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return nil
		}
		o = cloneOrder(o)
		if !fn(&o) {
			return nil
		}
		o.UpdatedAt = time.Now()
		st.orders[id] = o
		changed = true
		return nil
	})
	return changed, err
}

var _ repo.OrderRepository = (*OrderRepository)(nil)
