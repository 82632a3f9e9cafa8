package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, o *model.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		o.Items[i].OrderID = o.ID
		o.Items[i].Position = i
	}
	// items are inserted through the has-many association
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r *OrderGormRepository) FindByID(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error
	if err != nil {
		if translate(err) == repo.ErrNotFound {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) List(ctx context.Context, q repo.OrderListQuery) ([]model.Order, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Order{})
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var orders []model.Order
	offset := (q.Page - 1) * q.Limit
	if err := tx.Preload("Items", itemsInOrder).
		Order("created_at desc").Order("id desc").
		Limit(q.Limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return []model.Order{}, 0, err
	}
	return orders, total, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPaid is the persisted form of Order.ApplyPayment.
func (r *OrderGormRepository) MarkPaid(ctx context.Context, id string, method model.PaymentMethod, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ? AND status <> ?", id, model.PaymentStatusUnpaid, model.OrderStatusCancelled).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentStatusPaid,
			"payment_method": method,
			"paid_at":        at,
			"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
				model.OrderStatusPending, model.OrderStatusProcessing),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderGormRepository) UpdatePaymentStatus(ctx context.Context, id string, from, to model.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(map[string]interface{}{"payment_status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

var _ repo.OrderRepository = (*OrderGormRepository)(nil)
