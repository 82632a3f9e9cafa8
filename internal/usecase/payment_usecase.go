package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/logging"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type PaymentUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	gateway PaymentGateway
	clock   Clock
}

func NewPaymentUsecase(tx repo.TransactionManager, orders repo.OrderRepository, gateway PaymentGateway) *PaymentUsecase {
	return &PaymentUsecase{
		tx:      tx,
		orders:  orders,
		gateway: gateway,
		clock:   SystemClock,
	}
}

// POST /payment
type PayInput struct {
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
}

type PayOutput struct {
	OrderID       string              `json:"orderId"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	Status        model.OrderStatus   `json:"status"`
	PaidAt        *time.Time          `json:"paidAt"`
	TransactionID string              `json:"transactionId"`
	RedirectURL   string              `json:"redirectUrl"`
}

// Pay charges the order total once. The gateway call happens outside the
// transaction; the paid transition is a conditional update, so of two
// concurrent approved charges only one marks the order paid.
func (u *PaymentUsecase) Pay(ctx context.Context, actor Actor, in PayInput) (PayOutput, error) {
	if err := requireActor(actor); err != nil {
		return PayOutput{}, err
	}

	id := strings.TrimSpace(in.OrderID)
	if id == "" {
		return PayOutput{}, badRequest("orderId is required")
	}
	method := model.PaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = model.PaymentMethodStripe
	}
	if !method.Valid() {
		return PayOutput{}, badRequest("invalid payment method")
	}

	o, err := u.ownOrder(ctx, actor, id)
	if err != nil {
		return PayOutput{}, err
	}
	if err := o.CheckPayable(); err != nil {
		return PayOutput{}, badRequest(err.Error())
	}

	log := logging.FromCtx(ctx).With("order_id", o.ID)

	res, err := u.gateway.Charge(ctx, ChargeRequest{OrderID: o.ID, Amount: o.TotalAmount, Method: method})
	if err != nil {
		payments.WithLabelValues("error").Inc()
		log.Warn("payment gateway failed", "err", err)
		return PayOutput{}, NewHTTPError(http.StatusBadGateway, "payment service unavailable")
	}
	if !res.Approved {
		payments.WithLabelValues("declined").Inc()
		log.Info("payment declined", "reason", res.Message)
		return PayOutput{}, badRequest("payment failed")
	}

	now := u.clock.Now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().MarkPaid(ctx, o.ID, method, now)
		if err != nil {
			return internalError(ctx, "mark order paid", err)
		}
		if !ok {
			// a concurrent charge won; this one must be voided at the provider
			log.Warn("charge approved for an order that is no longer payable", "transaction_id", res.TransactionID)
			return badRequest(model.ErrAlreadyPaid.Error())
		}

		before := paymentSnapshot(o)
		if err := o.ApplyPayment(method, now); err != nil {
			return internalError(ctx, "apply payment", err)
		}
		return writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionUpdatePaymentStatus, model.AuditResourceOrder, o.ID,
			before, paymentSnapshot(o), now)
	})
	if err != nil {
		return PayOutput{}, err
	}

	payments.WithLabelValues("approved").Inc()
	log.Info("payment approved", "transaction_id", res.TransactionID)

	return PayOutput{
		OrderID:       o.ID,
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		PaidAt:        o.PaidAt,
		TransactionID: res.TransactionID,
		RedirectURL:   "/payment/success?orderId=" + o.ID,
	}, nil
}

type PaymentStatusOutput struct {
	OrderID       string              `json:"orderId"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	Status        model.OrderStatus   `json:"status"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	PaidAt        *time.Time          `json:"paidAt"`
}

// CheckStatus is read-only; admins may check any order.
func (u *PaymentUsecase) CheckStatus(ctx context.Context, actor Actor, orderID string) (PaymentStatusOutput, error) {
	if err := requireActor(actor); err != nil {
		return PaymentStatusOutput{}, err
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return PaymentStatusOutput{}, badRequest("orderId is required")
	}
	if !validID(id) {
		return PaymentStatusOutput{}, notFound("order not found")
	}

	o, err := u.orders.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentStatusOutput{}, notFound("order not found")
	}
	if err != nil {
		return PaymentStatusOutput{}, internalError(ctx, "find order", err)
	}
	if !o.OwnedBy(actor.UserID) && !actor.IsAdmin() {
		return PaymentStatusOutput{}, forbidden("forbidden")
	}

	return PaymentStatusOutput{
		OrderID:       o.ID,
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		PaidAt:        o.PaidAt,
	}, nil
}

// ownOrder loads an order only its owner may pay for.
func (u *PaymentUsecase) ownOrder(ctx context.Context, actor Actor, id string) (model.Order, error) {
	if !validID(id) {
		return model.Order{}, notFound("order not found")
	}
	o, err := u.orders.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFound("order not found")
	}
	if err != nil {
		return model.Order{}, internalError(ctx, "find order", err)
	}
	if !o.OwnedBy(actor.UserID) {
		return model.Order{}, forbidden("forbidden")
	}
	return o, nil
}
