package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type ProductRepository struct {
	b backend
}

func (r *ProductRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	var matched []model.Product
	r.b.read(func(st *state) {
		for _, p := range st.products {
			if needle != "" &&
				!strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.Description), needle) {
				continue
			}
			if q.Category != "" && p.Category != q.Category {
				continue
			}
			if q.Gender != "" && p.Gender != q.Gender {
				continue
			}
			if q.Season != "" && p.Season != q.Season {
				continue
			}
			matched = append(matched, p)
		}
	})

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, q.Page, q.Limit), int64(len(matched)), nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var (
		p  model.Product
		ok bool
	)
	r.b.read(func(st *state) { p, ok = st.products[id] })
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product, len(ids))
	r.b.read(func(st *state) {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out[id] = p
			}
		}
	})
	return out, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return r.b.write(func(st *state) error {
		if _, exists := st.products[p.ID]; exists {
			return repo.ErrDuplicate
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepository) Update(ctx context.Context, p *model.Product) error {
	return r.b.write(func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return repo.ErrNotFound
		}
		cur.Name = p.Name
		cur.Description = p.Description
		cur.Price = p.Price
		cur.Image = p.Image
		cur.Category = p.Category
		cur.Gender = p.Gender
		cur.Season = p.Season
		cur.UpdatedAt = time.Now()
		st.products[p.ID] = cur
		*p = cur
		return nil
	})
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.b.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return repo.ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return []T{}
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var _ repo.ProductRepository = (*ProductRepository)(nil)
