package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotInCart   = errors.New("item not found in cart")
)

// Cart is the single per-user cart. Total is derived from Items and is only
// ever written through Recalculate.
type Cart struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string          `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	Total     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// AddItem merges into an existing line without refreshing its captured price.
func (c *Cart) AddItem(productID string, quantity int, unitPrice decimal.Decimal) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := c.indexOf(productID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, CartItem{
			CartID:    c.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: unitPrice,
		})
	}
	c.Recalculate()
	return nil
}

// UpdateItemQuantity sets the quantity; quantity <= 0 removes the line.
func (c *Cart) UpdateItemQuantity(productID string, quantity int) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrItemNotInCart
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.Recalculate()
	return nil
}

func (c *Cart) RemoveItem(productID string) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrItemNotInCart
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.Recalculate()
	return nil
}

// Clear empties the cart. The cart itself is kept.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}

func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].Position = i
		total = total.Add(c.Items[i].Subtotal())
	}
	c.Total = total
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (c Cart) indexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
