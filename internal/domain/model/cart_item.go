package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one cart line. UnitPrice is captured when the product is first added.
type CartItem struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"-"`
	CartID    string          `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product,priority:1" json:"-"`
	ProductID string          `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product,priority:2;index" json:"productId"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Position  int             `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"addedAt"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
