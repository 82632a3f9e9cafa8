package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodStripe PaymentMethod = "stripe"
)

var PaymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodPaypal, PaymentMethodStripe}

func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	FullName   string `gorm:"type:varchar(255);not null" json:"fullName" validate:"required,max=255"`
	Phone      string `gorm:"type:varchar(50);not null" json:"phone" validate:"required,max=50"`
	Address    string `gorm:"type:text;not null" json:"address" validate:"required,max=1000"`
	City       string `gorm:"type:varchar(255)" json:"city,omitempty" validate:"max=255"`
	Country    string `gorm:"type:varchar(255)" json:"country,omitempty" validate:"max=255"`
	PostalCode string `gorm:"type:varchar(30)" json:"postalCode,omitempty" validate:"max=30"`
}

// Order is created once from a cart and afterwards only changes through the
// status and payment transitions in order_state.go.
type Order struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string          `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_user_idem,priority:1" json:"userId"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalAmount"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	Notes           string          `gorm:"type:varchar(500)" json:"notes,omitempty"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(20);not null;default:'cash'" json:"paymentMethod"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IdempotencyKey  *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idem,priority:2" json:"-"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// Number is the customer-facing order number.
func (o Order) Number() string {
	id := strings.ReplaceAll(o.ID, "-", "")
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return "ORD-" + strings.ToUpper(id)
}

func (o Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}
