package model

import (
	"errors"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrOrderRefunded     = errors.New("order is refunded")
)

// fulfilment moves driven by a privileged caller. pending only leaves
// through payment (ApplyPayment) or cancellation (Cancel).
var fulfilmentTransitions = map[OrderStatus]OrderStatus{
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanAdvanceTo reports whether s may move forward to next in fulfilment.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	to, ok := fulfilmentTransitions[s]
	return ok && to == next
}

func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo: unpaid -> paid -> refunded, never backwards.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch p {
	case PaymentStatusUnpaid:
		return next == PaymentStatusPaid
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded
	}
	return false
}

// CheckPayable returns why the order cannot take a payment, or nil.
func (o Order) CheckPayable() error {
	switch {
	case o.PaymentStatus == PaymentStatusPaid:
		return ErrAlreadyPaid
	case o.PaymentStatus == PaymentStatusRefunded:
		return ErrOrderRefunded
	case o.Status == OrderStatusCancelled:
		return ErrOrderCancelled
	}
	return nil
}

// ApplyPayment is the payment-confirmation transition. It stamps paidAt,
// records the method and advances a pending order to processing.
// Repositories mirror it with a single conditional update.
func (o *Order) ApplyPayment(method PaymentMethod, at time.Time) error {
	if err := o.CheckPayable(); err != nil {
		return err
	}
	o.PaymentStatus = PaymentStatusPaid
	o.PaymentMethod = method
	paidAt := at
	o.PaidAt = &paidAt
	if o.Status == OrderStatusPending {
		o.Status = OrderStatusProcessing
	}
	return nil
}

// Cancel reports false and leaves the order untouched unless it is pending.
func (o *Order) Cancel() bool {
	if !o.Status.Cancellable() {
		return false
	}
	o.Status = OrderStatusCancelled
	return true
}
