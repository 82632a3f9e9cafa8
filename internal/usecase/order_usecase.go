package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/logging"
	repo "storefront/internal/repository"
	"storefront/internal/validator"
)

const maxIdempotencyKeyLen = 255

// errIdempotencyRace aborts the checkout tx when another request stored
// the same key first; the winner's order is read after rollback.
var errIdempotencyRace = errors.New("idempotency key taken")

type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	idem   IdempotencyStore // optional
	pages  PageConfig
	clock  Clock
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, idem IdempotencyStore, pages PageConfig) *OrderUsecase {
	return &OrderUsecase{
		tx:     tx,
		orders: orders,
		idem:   idem,
		pages:  pages,
		clock:  SystemClock,
	}
}

type PlaceOrderInput struct {
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	Notes           string                `json:"notes" validate:"max=500"`
	PaymentMethod   string                `json:"paymentMethod" validate:"omitempty,payment_method"`
	IdempotencyKey  string                `json:"-"`
}

func (in *PlaceOrderInput) normalize() {
	a := &in.ShippingAddress
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.Country = strings.TrimSpace(a.Country)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	in.Notes = strings.TrimSpace(in.Notes)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
}

// PlaceOrderOutput.Replayed is true when an earlier order with the same
// idempotency key was returned instead of creating a new one.
type PlaceOrderOutput struct {
	Order    model.Order
	Replayed bool
}

// PlaceOrder turns the caller's cart into an order and empties the cart in
// one transaction. Order lines copy name and image from the catalog and keep
// the price captured in the cart, so totalAmount equals the cart total.
func (u *OrderUsecase) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if err := requireActor(actor); err != nil {
		return PlaceOrderOutput{}, err
	}

	in.normalize()
	if err := validator.Struct(in); err != nil {
		return PlaceOrderOutput{}, badRequest(err.Error())
	}
	if len(in.IdempotencyKey) > maxIdempotencyKeyLen {
		return PlaceOrderOutput{}, badRequest("invalid idempotency key")
	}
	method := model.PaymentMethod(in.PaymentMethod)
	if method == "" {
		method = model.PaymentMethodCash
	}

	key := in.IdempotencyKey
	log := logging.FromCtx(ctx)

	if key != "" && u.idem != nil {
		if o, ok := u.recall(ctx, actor, key); ok {
			return PlaceOrderOutput{Order: o, Replayed: true}, nil
		}

		locked, err := u.idem.TryLock(ctx, actor.UserID, key)
		switch {
		case err != nil:
			// the unique index still rejects a duplicate
			log.Warn("idempotency lock unavailable", "err", err)
		case !locked:
			return PlaceOrderOutput{}, NewHTTPError(http.StatusConflict, "an order with this idempotency key is already being processed")
		}
	}

	out, err := u.placeOrderTx(ctx, actor, in, method)
	if errors.Is(err, errIdempotencyRace) {
		o, found, ferr := u.orders.FindByIdempotencyKey(ctx, actor.UserID, key)
		if ferr != nil || !found {
			return PlaceOrderOutput{}, NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		out, err = PlaceOrderOutput{Order: o, Replayed: true}, nil
	}
	if err != nil {
		if key != "" && u.idem != nil {
			if rerr := u.idem.Release(ctx, actor.UserID, key); rerr != nil {
				log.Warn("idempotency release failed", "err", rerr)
			}
		}
		return PlaceOrderOutput{}, err
	}

	if key != "" && u.idem != nil {
		if err := u.idem.Remember(ctx, actor.UserID, key, out.Order.ID); err != nil {
			log.Warn("idempotency remember failed", "err", err)
		}
	}
	if !out.Replayed {
		ordersPlaced.Inc()
		log.Info("order placed", "order_id", out.Order.ID, "total", out.Order.TotalAmount.String(), "lines", len(out.Order.Items))
	}
	return out, nil
}

func (u *OrderUsecase) recall(ctx context.Context, actor Actor, key string) (model.Order, bool) {
	id, ok, err := u.idem.Recall(ctx, actor.UserID, key)
	if err != nil || !ok {
		return model.Order{}, false
	}
	o, err := u.orders.FindByID(ctx, id)
	if err != nil || !o.OwnedBy(actor.UserID) {
		return model.Order{}, false
	}
	return o, true
}

func (u *OrderUsecase) placeOrderTx(ctx context.Context, actor Actor, in PlaceOrderInput, method model.PaymentMethod) (PlaceOrderOutput, error) {
	var out PlaceOrderOutput
	key := in.IdempotencyKey

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, actor.UserID, key)
			if err != nil {
				return internalError(ctx, "find order by idempotency key", err)
			}
			if found {
				out = PlaceOrderOutput{Order: existing, Replayed: true}
				return nil
			}
		}

		cart, err := r.Carts().FindByUserIDForUpdate(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return badRequest("cart is empty")
		}
		if err != nil {
			return internalError(ctx, "find cart", err)
		}
		if cart.IsEmpty() {
			return badRequest("cart is empty")
		}

		products, err := r.Products().FindByIDs(ctx, cart.ProductIDs())
		if err != nil {
			return internalError(ctx, "load cart products", err)
		}

		items := make([]model.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			p, ok := products[line.ProductID]
			if !ok {
				return badRequest(fmt.Sprintf("product %s is no longer available", line.ProductID))
			}
			items = append(items, model.OrderItem{
				ProductID: line.ProductID,
				Name:      p.Name,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				Image:     p.Image,
			})
		}

		order := model.Order{
			UserID:          actor.UserID,
			Items:           items,
			TotalAmount:     cart.Total,
			ShippingAddress: in.ShippingAddress,
			Notes:           in.Notes,
			PaymentMethod:   method,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusUnpaid,
			CreatedAt:       u.clock.Now(),
		}
		if key != "" {
			k := key
			order.IdempotencyKey = &k
		}

		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) && key != "" {
				return errIdempotencyRace
			}
			return internalError(ctx, "create order", err)
		}

		cart.Clear()
		if err := r.Carts().Save(ctx, &cart); err != nil {
			return internalError(ctx, "clear cart", err)
		}

		out = PlaceOrderOutput{Order: order}
		return nil
	})
	return out, err
}

// GetOrder returns one order. Other users' orders are 403, not 404.
func (u *OrderUsecase) GetOrder(ctx context.Context, actor Actor, id string) (model.Order, error) {
	if err := requireActor(actor); err != nil {
		return model.Order{}, err
	}
	return u.loadAuthorized(ctx, actor, id)
}

func (u *OrderUsecase) loadAuthorized(ctx context.Context, actor Actor, id string) (model.Order, error) {
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
	if !o.OwnedBy(actor.UserID) && !actor.IsAdmin() {
		return model.Order{}, forbidden("forbidden")
	}
	return o, nil
}

type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID string // admin listing only
}

type OrderListOutput struct {
	Orders     []model.Order
	Pagination Pagination
}

// ListOrders lists the caller's own orders, newest first.
func (u *OrderUsecase) ListOrders(ctx context.Context, actor Actor, in ListOrdersInput) (OrderListOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderListOutput{}, err
	}
	in.UserID = actor.UserID
	return u.list(ctx, in)
}

// AdminListOrders lists every user's orders, optionally for one user.
func (u *OrderUsecase) AdminListOrders(ctx context.Context, actor Actor, in ListOrdersInput) (OrderListOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderListOutput{}, err
	}
	if !actor.IsAdmin() {
		return OrderListOutput{}, forbidden("admin only")
	}
	if in.UserID != "" && !validID(in.UserID) {
		return OrderListOutput{}, badRequest("invalid userId")
	}
	return u.list(ctx, in)
}

func (u *OrderUsecase) list(ctx context.Context, in ListOrdersInput) (OrderListOutput, error) {
	page, limit := u.pages.normalize(in.Page, in.Limit)

	status := model.OrderStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.Valid() {
		return OrderListOutput{}, badRequest("invalid status")
	}

	orders, total, err := u.orders.List(ctx, repo.OrderListQuery{
		UserID: in.UserID,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return OrderListOutput{}, internalError(ctx, "list orders", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return OrderListOutput{Orders: orders, Pagination: newPagination(page, limit, total)}, nil
}

// OrderPatch requests a status and/or payment status transition.
type OrderPatch struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
}

// UpdateOrder applies the requested transitions:
//   - the owner may cancel a pending order; cancelling any other status
//     returns the order unchanged
//   - an admin may advance processing -> shipped -> delivered
//   - an admin may set paymentStatus paid (same effect as a confirmed
//     payment) or refund a paid order
func (u *OrderUsecase) UpdateOrder(ctx context.Context, actor Actor, id string, patch OrderPatch) (model.Order, error) {
	if err := requireActor(actor); err != nil {
		return model.Order{}, err
	}
	if patch.Status == nil && patch.PaymentStatus == nil {
		return model.Order{}, badRequest("status or paymentStatus is required")
	}

	var (
		toStatus  model.OrderStatus
		toPayment model.PaymentStatus
	)
	if patch.Status != nil {
		toStatus = model.OrderStatus(strings.TrimSpace(*patch.Status))
		if !toStatus.Valid() {
			return model.Order{}, badRequest("invalid status")
		}
	}
	if patch.PaymentStatus != nil {
		toPayment = model.PaymentStatus(strings.TrimSpace(*patch.PaymentStatus))
		if !toPayment.Valid() {
			return model.Order{}, badRequest("invalid payment status")
		}
	}

	if _, err := u.loadAuthorized(ctx, actor, id); err != nil {
		return model.Order{}, err
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order not found")
		}
		if err != nil {
			return internalError(ctx, "find order", err)
		}

		if toStatus != "" {
			if err := u.transitionStatus(ctx, r, actor, &o, toStatus); err != nil {
				return err
			}
		}
		if toPayment != "" {
			if err := u.transitionPayment(ctx, r, actor, &o, toPayment); err != nil {
				return err
			}
		}

		out, err = r.Orders().FindByID(ctx, id)
		if err != nil {
			return internalError(ctx, "reload order", err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

func (u *OrderUsecase) transitionStatus(ctx context.Context, r repo.TxRepos, actor Actor, o *model.Order, to model.OrderStatus) error {
	from := o.Status
	if from == to {
		return nil
	}

	if to == model.OrderStatusCancelled {
		if !o.OwnedBy(actor.UserID) {
			return forbidden("only the owner can cancel this order")
		}
		next := *o
		if !next.Cancel() {
			logging.FromCtx(ctx).Info("cancel ignored", "order_id", o.ID, "status", string(from))
			return nil
		}
		ok, err := r.Orders().UpdateStatus(ctx, o.ID, from, to)
		if err != nil {
			return internalError(ctx, "cancel order", err)
		}
		if !ok {
			// moved on concurrently (e.g. paid); same outcome as cancelling a non-pending order
			logging.FromCtx(ctx).Info("cancel ignored", "order_id", o.ID, "reason", "status changed")
			return nil
		}
		o.Status = to
		return u.auditStatus(ctx, r, actor, o.ID, from, to)
	}

	if !actor.IsAdmin() {
		return forbidden(fmt.Sprintf("only an administrator can set status to %s", to))
	}
	if !from.CanAdvanceTo(to) {
		return badRequest(fmt.Sprintf("cannot change status from %s to %s", from, to))
	}
	ok, err := r.Orders().UpdateStatus(ctx, o.ID, from, to)
	if err != nil {
		return internalError(ctx, "update order status", err)
	}
	if !ok {
		return NewHTTPError(http.StatusConflict, "order was modified concurrently")
	}
	o.Status = to
	return u.auditStatus(ctx, r, actor, o.ID, from, to)
}

func (u *OrderUsecase) transitionPayment(ctx context.Context, r repo.TxRepos, actor Actor, o *model.Order, to model.PaymentStatus) error {
	from := o.PaymentStatus
	if from == to {
		return nil
	}
	if !actor.IsAdmin() {
		return forbidden("only an administrator can change payment status")
	}
	if !from.CanTransitionTo(to) {
		return badRequest(fmt.Sprintf("cannot change payment status from %s to %s", from, to))
	}

	now := u.clock.Now()
	switch to {
	case model.PaymentStatusPaid:
		if err := o.CheckPayable(); err != nil {
			return badRequest(err.Error())
		}
		ok, err := r.Orders().MarkPaid(ctx, o.ID, o.PaymentMethod, now)
		if err != nil {
			return internalError(ctx, "mark order paid", err)
		}
		if !ok {
			return badRequest(model.ErrAlreadyPaid.Error())
		}
		before := *o
		if err := o.ApplyPayment(o.PaymentMethod, now); err != nil {
			return internalError(ctx, "apply payment", err)
		}
		return writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionUpdatePaymentStatus, model.AuditResourceOrder, o.ID,
			paymentSnapshot(before), paymentSnapshot(*o), now)

	default:
		ok, err := r.Orders().UpdatePaymentStatus(ctx, o.ID, from, to)
		if err != nil {
			return internalError(ctx, "update payment status", err)
		}
		if !ok {
			return NewHTTPError(http.StatusConflict, "order was modified concurrently")
		}
		before := *o
		o.PaymentStatus = to
		return writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionUpdatePaymentStatus, model.AuditResourceOrder, o.ID,
			paymentSnapshot(before), paymentSnapshot(*o), now)
	}
}

func (u *OrderUsecase) auditStatus(ctx context.Context, r repo.TxRepos, actor Actor, id string, from, to model.OrderStatus) error {
	return writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, id,
		map[string]string{"status": string(from)}, map[string]string{"status": string(to)}, u.clock.Now())
}

type paymentState struct {
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
}

func paymentSnapshot(o model.Order) paymentState {
	return paymentState{Status: o.Status, PaymentStatus: o.PaymentStatus}
}
