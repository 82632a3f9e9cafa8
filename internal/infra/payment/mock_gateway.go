package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"storefront/internal/usecase"

	"github.com/google/uuid"
)

// MockGateway approves a charge with probability successRate.
type MockGateway struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	successRate float64
}

func NewMockGateway(successRate float64, seed int64) *MockGateway {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockGateway{
		rnd:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

func (g *MockGateway) Charge(ctx context.Context, req usecase.ChargeRequest) (usecase.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return usecase.ChargeResult{}, err
	}

	g.mu.Lock()
	roll := g.rnd.Float64()
	g.mu.Unlock()

	if roll >= g.successRate {
		return usecase.ChargeResult{Approved: false, Message: "payment declined"}, nil
	}
	return usecase.ChargeResult{
		Approved:      true,
		TransactionID: "mock_" + uuid.NewString(),
	}, nil
}

var _ usecase.PaymentGateway = (*MockGateway)(nil)
