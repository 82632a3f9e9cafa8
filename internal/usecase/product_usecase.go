package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
	pages    PageConfig
	clock    Clock
}

func NewProductUsecase(tx repo.TransactionManager, products repo.ProductRepository, pages PageConfig) *ProductUsecase {
	return &ProductUsecase{
		tx:       tx,
		products: products,
		pages:    pages,
		clock:    SystemClock,
	}
}

// GET /products
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Gender   string
	Season   string
}

type ProductListOutput struct {
	Items      []model.Product `json:"items"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"totalPages"`
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	page, limit := u.pages.normalize(in.Page, in.Limit)

	q := strings.TrimSpace(in.Q)
	if len(q) > 100 {
		return ProductListOutput{}, badRequest("q too long")
	}
	if in.Category != "" && !model.Category(in.Category).Valid() {
		return ProductListOutput{}, badRequest("invalid category")
	}
	if in.Gender != "" && !model.Gender(in.Gender).Valid() {
		return ProductListOutput{}, badRequest("invalid gender")
	}
	if in.Season != "" && !model.Season(in.Season).Valid() {
		return ProductListOutput{}, badRequest("invalid season")
	}

	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Page:     page,
		Limit:    limit,
		Q:        q,
		Category: model.Category(in.Category),
		Gender:   model.Gender(in.Gender),
		Season:   model.Season(in.Season),
	})
	if err != nil {
		return ProductListOutput{}, internalError(ctx, "list products", err)
	}
	if items == nil {
		items = []model.Product{}
	}

	p := newPagination(page, limit, total)
	return ProductListOutput{
		Items:      items,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}, nil
}

func (u *ProductUsecase) Get(ctx context.Context, id string) (model.Product, error) {
	if !validID(id) {
		return model.Product{}, notFound("product not found")
	}

	p, err := u.products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product not found")
	}
	if err != nil {
		return model.Product{}, internalError(ctx, "find product", err)
	}
	return p, nil
}

type CreateProductInput struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price"`
	Image       string           `json:"image" validate:"omitempty,httpurl"`
	Category    string           `json:"category" validate:"required,category"`
	Gender      string           `json:"gender" validate:"required,gender"`
	Season      string           `json:"season" validate:"required,season"`
}

func (in *CreateProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
}

func (u *ProductUsecase) Create(ctx context.Context, actor Actor, in CreateProductInput) (model.Product, error) {
	if err := requireActor(actor); err != nil {
		return model.Product{}, err
	}

	in.normalize()
	if err := validator.Struct(in); err != nil {
		return model.Product{}, badRequest(err.Error())
	}
	if err := checkPrice(in.Price, true); err != nil {
		return model.Product{}, err
	}

	creator := actor.UserID
	p := model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       *in.Price,
		Image:       in.Image,
		Category:    model.Category(in.Category),
		Gender:      model.Gender(in.Gender),
		Season:      model.Season(in.Season),
		CreatedBy:   &creator,
	}
	if err := u.products.Create(ctx, &p); err != nil {
		return model.Product{}, internalError(ctx, "create product", err)
	}
	return p, nil
}

// ProductPatch carries only the fields to change.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
	Gender      *string          `json:"gender"`
	Season      *string          `json:"season"`
}

func (p *ProductPatch) validate() error {
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		if v == "" {
			return badRequest("name must not be empty")
		}
		if len(v) > 255 {
			return badRequest("name must be at most 255 characters")
		}
		p.Name = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		if v == "" {
			return badRequest("description must not be empty")
		}
		p.Description = &v
	}
	if err := checkPrice(p.Price, false); err != nil {
		return err
	}
	if p.Image != nil {
		v := strings.TrimSpace(*p.Image)
		if v != "" && !validator.IsHTTPURL(v) {
			return badRequest("image must be a valid http/https URL")
		}
		p.Image = &v
	}
	if p.Category != nil && !model.Category(*p.Category).Valid() {
		return badRequest("invalid category")
	}
	if p.Gender != nil && !model.Gender(*p.Gender).Valid() {
		return badRequest("invalid gender")
	}
	if p.Season != nil && !model.Season(*p.Season).Valid() {
		return badRequest("invalid season")
	}
	return nil
}

func (p ProductPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Image == nil &&
		p.Category == nil && p.Gender == nil && p.Season == nil
}

func (p ProductPatch) applyTo(prod *model.Product) {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	if p.Category != nil {
		prod.Category = model.Category(*p.Category)
	}
	if p.Gender != nil {
		prod.Gender = model.Gender(*p.Gender)
	}
	if p.Season != nil {
		prod.Season = model.Season(*p.Season)
	}
}

func (u *ProductUsecase) Update(ctx context.Context, actor Actor, id string, patch ProductPatch) (model.Product, error) {
	if err := requireActor(actor); err != nil {
		return model.Product{}, err
	}
	if !validID(id) {
		return model.Product{}, notFound("product not found")
	}
	if err := patch.validate(); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product not found")
		}
		if err != nil {
			return internalError(ctx, "find product", err)
		}
		if !p.EditableBy(actor.UserID) && !actor.IsAdmin() {
			return forbidden("forbidden")
		}
		if patch.empty() {
			out = p
			return nil
		}

		before := p
		patch.applyTo(&p)
		p.UpdatedAt = u.clock.Now()

		if err := r.Products().Update(ctx, &p); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("product not found")
			}
			return internalError(ctx, "update product", err)
		}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionUpdateProduct,
			model.AuditResourceProduct, p.ID, before, p, u.clock.Now()); err != nil {
			return err
		}

		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// Delete removes the product and returns what was deleted.
func (u *ProductUsecase) Delete(ctx context.Context, actor Actor, id string) (model.Product, error) {
	if err := requireActor(actor); err != nil {
		return model.Product{}, err
	}
	if !validID(id) {
		return model.Product{}, notFound("product not found")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product not found")
		}
		if err != nil {
			return internalError(ctx, "find product", err)
		}
		if !p.EditableBy(actor.UserID) && !actor.IsAdmin() {
			return forbidden("forbidden")
		}

		if err := r.Products().Delete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("product not found")
			}
			return internalError(ctx, "delete product", err)
		}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionDeleteProduct,
			model.AuditResourceProduct, p.ID, p, nil, u.clock.Now()); err != nil {
			return err
		}

		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

func checkPrice(price *decimal.Decimal, required bool) error {
	if price == nil {
		if required {
			return badRequest("price is required")
		}
		return nil
	}
	if price.IsNegative() {
		return badRequest("price must be >= 0")
	}
	return nil
}

// writeAudit stores before/after as JSON. A nil side is stored empty.
func writeAudit(
	ctx context.Context,
	logs repo.AuditLogRepository,
	actor Actor,
	action model.AuditAction,
	resource model.AuditResourceType,
	resourceID string,
	before, after interface{},
	at time.Time,
) error {
	entry := model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    at,
	}
	if err := logs.Create(ctx, entry); err != nil {
		return internalError(ctx, "write audit log", err)
	}
	return nil
}

func toJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
