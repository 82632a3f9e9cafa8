package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	return r.find(ctx, userID, false)
}

func (r *CartGormRepository) FindByUserIDForUpdate(ctx context.Context, userID string) (model.Cart, error) {
	return r.find(ctx, userID, true)
}

// GetOrCreateByUserID inserts an empty cart unless one exists, then loads it
// with a row lock. The unique index on user_id settles concurrent creators.
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID string) (model.Cart, error) {
	seed := model.Cart{
		ID:     uuid.NewString(),
		UserID: userID,
		Total:  decimal.Zero,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Omit(clause.Associations).
		Create(&seed).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return r.find(ctx, userID, true)
}

func (r *CartGormRepository) find(ctx context.Context, userID string, lock bool) (model.Cart, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var cart model.Cart
	if err := q.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return model.Cart{}, translate(err)
	}

	items := []model.CartItem{}
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("position asc").
		Find(&items).Error; err != nil {
		return model.Cart{}, err
	}
	cart.Items = items
	return cart, nil
}

// Save writes the total and replaces the item rows in one transaction
// (a savepoint when already inside one).
func (r *CartGormRepository) Save(ctx context.Context, cart *model.Cart) error {
	cart.Recalculate()
	now := time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Cart{}).
			Where("id = ?", cart.ID).
			Updates(map[string]interface{}{"total": cart.Total, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return nil
		}

		for i := range cart.Items {
			if cart.Items[i].ID == "" {
				cart.Items[i].ID = uuid.NewString()
			}
			if cart.Items[i].CreatedAt.IsZero() {
				cart.Items[i].CreatedAt = now
			}
			cart.Items[i].CartID = cart.ID
		}
		return tx.Create(&cart.Items).Error
	})
}

var _ repo.CartRepository = (*CartGormRepository)(nil)
