package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPlaceOrder_CartOfTwoAt100000(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "tee", "100000")
	f.addToCart(t, alice, p.ID, 2)

	out, err := f.orders.PlaceOrder(ctx, alice, validOrderInput())
	require.NoError(t, err)
	o := out.Order

	assert.False(t, out.Replayed)
	assert.True(t, dec("200000").Equal(o.TotalAmount))
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, o.PaymentStatus)
	assert.Equal(t, model.PaymentMethodCash, o.PaymentMethod)
	assert.Nil(t, o.PaidAt)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "tee", o.Items[0].Name)
	assert.True(t, dec("100000").Equal(o.Items[0].UnitPrice))
	assert.Equal(t, p.Image, o.Items[0].Image)

	cart, err := f.carts.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("no cart yet", func(t *testing.T) {
		_, err := f.orders.PlaceOrder(ctx, alice, validOrderInput())
		assertHTTPError(t, err, http.StatusBadRequest, "cart is empty")
	})

	t.Run("cart emptied", func(t *testing.T) {
		p := f.seedProduct(t, admin, "cap", "10")
		f.addToCart(t, alice, p.ID, 1)
		_, err := f.carts.Clear(ctx, alice)
		require.NoError(t, err)

		_, err = f.orders.PlaceOrder(ctx, alice, validOrderInput())
		assertHTTPError(t, err, http.StatusBadRequest, "cart is empty")
	})

	list, err := f.orders.ListOrders(ctx, alice, ListOrdersInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.Pagination.Total)
}

func TestPlaceOrder_SnapshotSurvivesProductChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, alice, "hoodie", "59.90")
	f.addToCart(t, alice, p.ID, 1)
	placed := f.placeOrder(t, alice)

	newPrice := dec("99.00")
	_, err := f.products.Update(ctx, alice, p.ID, ProductPatch{
		Name:  strPtr("hoodie v2"),
		Price: &newPrice,
		Image: strPtr("https://img.example.com/other.png"),
	})
	require.NoError(t, err)

	got, err := f.orders.GetOrder(ctx, alice, placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "hoodie", got.Items[0].Name)
	assert.True(t, dec("59.90").Equal(got.Items[0].UnitPrice))
	assert.Equal(t, p.Image, got.Items[0].Image)
	assert.True(t, dec("59.90").Equal(got.TotalAmount))

	// deleting the product does not touch the order either
	_, err = f.products.Delete(ctx, alice, p.ID)
	require.NoError(t, err)
	got, err = f.orders.GetOrder(ctx, alice, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "hoodie", got.Items[0].Name)
}

func TestPlaceOrder_UsesCapturedCartPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, alice, "jeans", "40")
	f.addToCart(t, alice, p.ID, 3)

	newPrice := dec("45")
	_, err := f.products.Update(ctx, alice, p.ID, ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	o := f.placeOrder(t, alice)
	assert.True(t, dec("120").Equal(o.TotalAmount))
	assert.True(t, dec("40").Equal(o.Items[0].UnitPrice))
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "sock", "2")
	f.addToCart(t, alice, p.ID, 1)

	missingName := validOrderInput()
	missingName.ShippingAddress.FullName = "  "
	_, err := f.orders.PlaceOrder(ctx, alice, missingName)
	assertHTTPError(t, err, http.StatusBadRequest, "shippingAddress.fullName is required")

	badMethod := validOrderInput()
	badMethod.PaymentMethod = "bitcoin"
	_, err = f.orders.PlaceOrder(ctx, alice, badMethod)
	assertHTTPError(t, err, http.StatusBadRequest, "")

	longNotes := validOrderInput()
	longNotes.Notes = strings.Repeat("x", 501)
	_, err = f.orders.PlaceOrder(ctx, alice, longNotes)
	assertHTTPError(t, err, http.StatusBadRequest, "notes must be at most 500 characters")

	_, err = f.orders.PlaceOrder(ctx, Actor{}, validOrderInput())
	assertHTTPError(t, err, http.StatusUnauthorized, "")

	// nothing was consumed
	cart, err := f.carts.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestPlaceOrder_DeletedProductInCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "gone", "5")
	f.addToCart(t, alice, p.ID, 1)
	_, err := f.products.Delete(ctx, admin, p.ID)
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(ctx, alice, validOrderInput())
	assertHTTPError(t, err, http.StatusBadRequest, "")

	cart, err := f.carts.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "failed checkout must not clear the cart")
}

func TestPlaceOrder_IdempotencyKeyReplaysWithoutStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "belt", "15")
	f.addToCart(t, alice, p.ID, 1)

	in := validOrderInput()
	in.IdempotencyKey = "checkout-1"

	first, err := f.orders.PlaceOrder(ctx, alice, in)
	require.NoError(t, err)
	second, err := f.orders.PlaceOrder(ctx, alice, in)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	list, err := f.orders.ListOrders(ctx, alice, ListOrdersInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Pagination.Total)

	// the key is scoped per user
	f.addToCart(t, bob, p.ID, 1)
	other, err := f.orders.PlaceOrder(ctx, bob, in)
	require.NoError(t, err)
	assert.False(t, other.Replayed)
	assert.NotEqual(t, first.Order.ID, other.Order.ID)
}

func TestPlaceOrder_IdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("locks then remembers", func(t *testing.T) {
		idem := &IdempotencyStoreMock{}
		f := newFixtureWithIdem(t, idem)
		p := f.seedProduct(t, admin, "scarf", "20")
		f.addToCart(t, alice, p.ID, 1)

		idem.On("Recall", mock.Anything, alice.UserID, "k1").Return("", false, nil).Once()
		idem.On("TryLock", mock.Anything, alice.UserID, "k1").Return(true, nil).Once()
		idem.On("Remember", mock.Anything, alice.UserID, "k1", mock.AnythingOfType("string")).Return(nil).Once()

		in := validOrderInput()
		in.IdempotencyKey = "k1"
		out, err := f.orders.PlaceOrder(ctx, alice, in)
		require.NoError(t, err)
		assert.False(t, out.Replayed)
		idem.AssertExpectations(t)
		idem.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("recalled order is returned", func(t *testing.T) {
		idem := &IdempotencyStoreMock{}
		f := newFixtureWithIdem(t, idem)
		p := f.seedProduct(t, admin, "scarf", "20")
		f.addToCart(t, alice, p.ID, 1)
		existing := f.placeOrder(t, alice)

		idem.On("Recall", mock.Anything, alice.UserID, "k2").Return(existing.ID, true, nil).Once()

		in := validOrderInput()
		in.IdempotencyKey = "k2"
		out, err := f.orders.PlaceOrder(ctx, alice, in)
		require.NoError(t, err)
		assert.True(t, out.Replayed)
		assert.Equal(t, existing.ID, out.Order.ID)
		idem.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("in-flight duplicate is a conflict", func(t *testing.T) {
		idem := &IdempotencyStoreMock{}
		f := newFixtureWithIdem(t, idem)
		p := f.seedProduct(t, admin, "scarf", "20")
		f.addToCart(t, alice, p.ID, 1)

		idem.On("Recall", mock.Anything, alice.UserID, "k3").Return("", false, nil).Once()
		idem.On("TryLock", mock.Anything, alice.UserID, "k3").Return(false, nil).Once()

		in := validOrderInput()
		in.IdempotencyKey = "k3"
		_, err := f.orders.PlaceOrder(ctx, alice, in)
		assertHTTPError(t, err, http.StatusConflict, "")
		idem.AssertExpectations(t)
	})

	t.Run("lock released when checkout fails", func(t *testing.T) {
		idem := &IdempotencyStoreMock{}
		f := newFixtureWithIdem(t, idem)

		idem.On("Recall", mock.Anything, alice.UserID, "k4").Return("", false, nil).Once()
		idem.On("TryLock", mock.Anything, alice.UserID, "k4").Return(true, nil).Once()
		idem.On("Release", mock.Anything, alice.UserID, "k4").Return(nil).Once()

		in := validOrderInput()
		in.IdempotencyKey = "k4"
		_, err := f.orders.PlaceOrder(ctx, alice, in)
		assertHTTPError(t, err, http.StatusBadRequest, "cart is empty")
		idem.AssertExpectations(t)
	})

	t.Run("store outage does not block checkout", func(t *testing.T) {
		idem := &IdempotencyStoreMock{}
		f := newFixtureWithIdem(t, idem)
		p := f.seedProduct(t, admin, "scarf", "20")
		f.addToCart(t, alice, p.ID, 1)

		down := errors.New("redis down")
		idem.On("Recall", mock.Anything, alice.UserID, "k5").Return("", false, down).Once()
		idem.On("TryLock", mock.Anything, alice.UserID, "k5").Return(false, down).Once()
		idem.On("Remember", mock.Anything, alice.UserID, "k5", mock.Anything).Return(down).Once()

		in := validOrderInput()
		in.IdempotencyKey = "k5"
		_, err := f.orders.PlaceOrder(ctx, alice, in)
		require.NoError(t, err)
		idem.AssertExpectations(t)
	})
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "dress", "80")
	f.addToCart(t, alice, p.ID, 1)
	o := f.placeOrder(t, alice)

	_, err := f.orders.GetOrder(ctx, bob, o.ID)
	assertHTTPError(t, err, http.StatusForbidden, "")

	got, err := f.orders.GetOrder(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.orders.GetOrder(ctx, alice, "not-a-uuid")
	assertHTTPError(t, err, http.StatusNotFound, "order not found")

	_, err = f.orders.GetOrder(ctx, alice, "6a1c1c44-7a38-4e9b-9f5e-000000000000")
	assertHTTPError(t, err, http.StatusNotFound, "order not found")
}

func TestListOrders_ScopedAndPaginated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "shoe", "30")
	for i := 0; i < 3; i++ {
		f.addToCart(t, alice, p.ID, 1)
		f.placeOrder(t, alice)
	}
	f.addToCart(t, bob, p.ID, 1)
	f.placeOrder(t, bob)

	out, err := f.orders.ListOrders(ctx, alice, ListOrdersInput{Page: 0, Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pagination.Page)
	assert.Equal(t, 100, out.Pagination.Limit)
	assert.Equal(t, int64(3), out.Pagination.Total)
	assert.Equal(t, 1, out.Pagination.TotalPages)
	for _, o := range out.Orders {
		assert.Equal(t, alice.UserID, o.UserID)
	}

	out, err = f.orders.ListOrders(ctx, alice, ListOrdersInput{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Orders, 1)
	assert.Equal(t, 2, out.Pagination.TotalPages)

	out, err = f.orders.ListOrders(ctx, alice, ListOrdersInput{Status: "shipped"})
	require.NoError(t, err)
	assert.Empty(t, out.Orders)
	assert.NotNil(t, out.Orders)

	_, err = f.orders.ListOrders(ctx, alice, ListOrdersInput{Status: "lost"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid status")
}

func TestAdminListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "jacket", "120")
	f.addToCart(t, alice, p.ID, 1)
	f.placeOrder(t, alice)
	f.addToCart(t, bob, p.ID, 1)
	f.placeOrder(t, bob)

	_, err := f.orders.AdminListOrders(ctx, alice, ListOrdersInput{})
	assertHTTPError(t, err, http.StatusForbidden, "")

	all, err := f.orders.AdminListOrders(ctx, admin, ListOrdersInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Pagination.Total)
	assert.Equal(t, 10, all.Pagination.Limit)

	bobs, err := f.orders.AdminListOrders(ctx, admin, ListOrdersInput{UserID: bob.UserID})
	require.NoError(t, err)
	require.Len(t, bobs.Orders, 1)
	assert.Equal(t, bob.UserID, bobs.Orders[0].UserID)

	_, err = f.orders.AdminListOrders(ctx, admin, ListOrdersInput{UserID: "bob"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid userId")
}

func TestUpdateOrder_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "skirt", "25")

	t.Run("owner cancels pending order", func(t *testing.T) {
		f.addToCart(t, alice, p.ID, 1)
		o := f.placeOrder(t, alice)

		got, err := f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{Status: strPtr("cancelled")})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, got.Status)

		logs, err := f.store.AuditLogs().List(ctx, repo.AuditLogFilter{ResourceID: &o.ID})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
		assert.Equal(t, alice.UserID, logs[0].ActorUserID)
		assert.JSONEq(t, `{"status":"pending"}`, logs[0].BeforeJSON)
		assert.JSONEq(t, `{"status":"cancelled"}`, logs[0].AfterJSON)
	})

	t.Run("cancelling a processing order is a no-op", func(t *testing.T) {
		f.addToCart(t, alice, p.ID, 1)
		o := f.placeOrder(t, alice)
		_, err := f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("paid")})
		require.NoError(t, err)

		got, err := f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{Status: strPtr("cancelled")})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusProcessing, got.Status)
		assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	})

	t.Run("other users cannot cancel", func(t *testing.T) {
		f.addToCart(t, alice, p.ID, 1)
		o := f.placeOrder(t, alice)

		_, err := f.orders.UpdateOrder(ctx, bob, o.ID, OrderPatch{Status: strPtr("cancelled")})
		assertHTTPError(t, err, http.StatusForbidden, "")

		got, err := f.orders.GetOrder(ctx, alice, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPending, got.Status)
	})

	t.Run("admin cannot cancel a customer's order", func(t *testing.T) {
		f.addToCart(t, alice, p.ID, 1)
		o := f.placeOrder(t, alice)

		_, err := f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{Status: strPtr("cancelled")})
		assertHTTPError(t, err, http.StatusForbidden, "only the owner can cancel this order")

		got, err := f.orders.GetOrder(ctx, alice, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPending, got.Status)

		logs, err := f.store.AuditLogs().List(ctx, repo.AuditLogFilter{ResourceID: &o.ID})
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}

func TestUpdateOrder_Fulfilment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "boots", "150")
	f.addToCart(t, alice, p.ID, 1)
	o := f.placeOrder(t, alice)

	_, err := f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{Status: strPtr("shipped")})
	assertHTTPError(t, err, http.StatusForbidden, "")

	_, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{Status: strPtr("shipped")})
	assertHTTPError(t, err, http.StatusBadRequest, "cannot change status from pending to shipped")

	_, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("paid")})
	require.NoError(t, err)

	got, err := f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{Status: strPtr("shipped")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)

	got, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{Status: strPtr("delivered")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, got.Status)

	_, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{Status: strPtr("processing")})
	assertHTTPError(t, err, http.StatusBadRequest, "")
}

func TestUpdateOrder_PaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "watch", "300")
	f.addToCart(t, alice, p.ID, 1)
	o := f.placeOrder(t, alice)

	_, err := f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{PaymentStatus: strPtr("paid")})
	assertHTTPError(t, err, http.StatusForbidden, "")

	_, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("refunded")})
	assertHTTPError(t, err, http.StatusBadRequest, "cannot change payment status from unpaid to refunded")

	paid, err := f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("paid")})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, model.OrderStatusProcessing, paid.Status)
	require.NotNil(t, paid.PaidAt)

	refunded, err := f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("refunded")})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, model.OrderStatusProcessing, refunded.Status)

	_, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("unpaid")})
	assertHTTPError(t, err, http.StatusBadRequest, "")

	logs, err := f.audit.List(ctx, admin, ListAuditLogsInput{ResourceID: o.ID})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionUpdatePaymentStatus, logs[0].Action)
	assert.JSONEq(t, `{"status":"processing","paymentStatus":"refunded"}`, logs[0].AfterJSON)
}

func TestUpdateOrder_BadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, admin, "ring", "9")
	f.addToCart(t, alice, p.ID, 1)
	o := f.placeOrder(t, alice)

	_, err := f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{})
	assertHTTPError(t, err, http.StatusBadRequest, "status or paymentStatus is required")

	_, err = f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{Status: strPtr("teleported")})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid status")

	_, err = f.orders.UpdateOrder(ctx, admin, o.ID, OrderPatch{PaymentStatus: strPtr("half")})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid payment status")

	_, err = f.orders.UpdateOrder(ctx, alice, "8b0f3d84-4b4c-4d8f-8a0e-000000000000", OrderPatch{Status: strPtr("cancelled")})
	assertHTTPError(t, err, http.StatusNotFound, "")

	// same status is accepted and changes nothing
	got, err := f.orders.UpdateOrder(ctx, alice, o.ID, OrderPatch{Status: strPtr("pending")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
}
