package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// ProductListQuery is an already-normalized catalog query.
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category model.Category
	Gender   model.Gender
	Season   model.Season
}

type ProductRepository interface {
	// newest first
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id string) (model.Product, error)
	// missing ids are absent from the map
	FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error)

	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
}
