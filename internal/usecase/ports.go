package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// IdempotencyStore guards checkout retries that carry the same key.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type ChargeRequest struct {
	OrderID string
	Amount  decimal.Decimal
	Method  model.PaymentMethod
}

// ChargeResult with Approved=false is a decline, not an error.
type ChargeResult struct {
	Approved      bool
	TransactionID string
	Message       string
}

// PaymentGateway is the external payment collaborator.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
