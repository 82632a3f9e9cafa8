package usecase

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// fixtures
// =====================

var (
	alice = Actor{UserID: "0b7e5a52-1c1d-4c55-8a8f-4d1f3b0a0001", Role: model.RoleUser}
	bob   = Actor{UserID: "0b7e5a52-1c1d-4c55-8a8f-4d1f3b0a0002", Role: model.RoleUser}
	admin = Actor{UserID: "0b7e5a52-1c1d-4c55-8a8f-4d1f3b0a00ad", Role: model.RoleAdmin}
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	products *ProductUsecase
	carts    *CartUsecase
	orders   *OrderUsecase
	payments *PaymentUsecase
	audit    *AuditUsecase
	gateway  *GatewayMock
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithIdem(t, nil)
}

func newFixtureWithIdem(t *testing.T, idem IdempotencyStore) *fixture {
	t.Helper()

	s := memory.NewStore()
	gw := &GatewayMock{}
	clock := fixedClock{t: testNow}

	f := &fixture{
		store:    s,
		products: NewProductUsecase(s, s.Products(), PageConfig{DefaultLimit: 12, MaxLimit: 100}),
		carts:    NewCartUsecase(s, s.Carts(), s.Products()),
		orders:   NewOrderUsecase(s, s.Orders(), idem, PageConfig{DefaultLimit: 10, MaxLimit: 100}),
		payments: NewPaymentUsecase(s, s.Orders(), gw),
		audit:    NewAuditUsecase(s.AuditLogs()),
		gateway:  gw,
	}
	f.products.clock = clock
	f.orders.clock = clock
	f.payments.clock = clock
	return f
}

func (f *fixture) seedProduct(t *testing.T, owner Actor, name, price string) model.Product {
	t.Helper()
	p := decimal.RequireFromString(price)
	out, err := f.products.Create(context.Background(), owner, CreateProductInput{
		Name:        name,
		Description: name + " description",
		Price:       &p,
		Image:       "https://img.example.com/" + name + ".png",
		Category:    string(model.CategoryTShirt),
		Gender:      string(model.GenderUnisex),
		Season:      string(model.SeasonSummer),
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) addToCart(t *testing.T, actor Actor, productID string, qty int) CartView {
	t.Helper()
	v, err := f.carts.AddItem(context.Background(), actor, AddItemInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return v
}

func (f *fixture) placeOrder(t *testing.T, actor Actor) model.Order {
	t.Helper()
	out, err := f.orders.PlaceOrder(context.Background(), actor, validOrderInput())
	require.NoError(t, err)
	return out.Order
}

func validOrderInput() PlaceOrderInput {
	return PlaceOrderInput{
		ShippingAddress: model.ShippingAddress{
			FullName: "Nguyen Van A",
			Phone:    "0900000000",
			Address:  "1 Le Loi",
			City:     "Hanoi",
			Country:  "VN",
		},
	}
}

func assertHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok, "want *HTTPError, got %T: %v", err, err)
	require.Equal(t, status, he.Status, he.Message)
	if msg != "" {
		require.Equal(t, msg, he.Message)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =====================
// mocks
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(ChargeResult)
	return res, args.Error(1)
}

type IdempotencyStoreMock struct{ mock.Mock }

func (m *IdempotencyStoreMock) TryLock(ctx context.Context, scope, key string) (bool, error) {
	args := m.Called(ctx, scope, key)
	return args.Bool(0), args.Error(1)
}

func (m *IdempotencyStoreMock) Release(ctx context.Context, scope, key string) error {
	args := m.Called(ctx, scope, key)
	return args.Error(0)
}

func (m *IdempotencyStoreMock) Remember(ctx context.Context, scope, key, value string) error {
	args := m.Called(ctx, scope, key, value)
	return args.Error(0)
}

func (m *IdempotencyStoreMock) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	args := m.Called(ctx, scope, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

var (
	_ PaymentGateway   = (*GatewayMock)(nil)
	_ IdempotencyStore = (*IdempotencyStoreMock)(nil)
)
