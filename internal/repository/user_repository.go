package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type UserRepository interface {
	// ErrDuplicate when the email is taken
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	IncrementTokenVersion(ctx context.Context, userID string) error
}
