package payment

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var req = usecase.ChargeRequest{OrderID: "o1", Amount: decimal.NewFromInt(10)}

func TestMockGateway_AlwaysApproves(t *testing.T) {
	g := NewMockGateway(1, 42)
	for i := 0; i < 50; i++ {
		res, err := g.Charge(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, res.Approved)
		assert.True(t, strings.HasPrefix(res.TransactionID, "mock_"))
	}
}

func TestMockGateway_AlwaysDeclines(t *testing.T) {
	g := NewMockGateway(0, 42)
	for i := 0; i < 50; i++ {
		res, err := g.Charge(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, res.Approved)
		assert.Empty(t, res.TransactionID)
		assert.Equal(t, "payment declined", res.Message)
	}
}

func TestMockGateway_Deterministic(t *testing.T) {
	a, b := NewMockGateway(0.5, 7), NewMockGateway(0.5, 7)
	for i := 0; i < 20; i++ {
		ra, _ := a.Charge(context.Background(), req)
		rb, _ := b.Charge(context.Background(), req)
		assert.Equal(t, ra.Approved, rb.Approved)
	}
}

func TestMockGateway_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockGateway(1, 1).Charge(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}
