package model

import "github.com/shopspring/decimal"

// OrderItem is a frozen copy of a cart line taken at checkout.
type OrderItem struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"-"`
	OrderID   string          `gorm:"type:uuid;not null;index" json:"-"`
	ProductID string          `gorm:"type:uuid;not null;index" json:"productId"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Image     string          `gorm:"type:text" json:"image,omitempty"`
	Position  int             `gorm:"not null;default:0" json:"-"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
