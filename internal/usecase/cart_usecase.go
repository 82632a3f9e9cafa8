package usecase

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase serves /cart. Every mutation runs in a transaction that holds
// the cart row lock, so concurrent adds for one user cannot lose increments.
type CartUsecase struct {
	tx       repo.TransactionManager
	carts    repo.CartRepository
	products repo.ProductRepository
}

func NewCartUsecase(tx repo.TransactionManager, carts repo.CartRepository, products repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		tx:       tx,
		carts:    carts,
		products: products,
	}
}

// ProductSummary is the current catalog view of a cart line's product.
type ProductSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Category model.Category  `json:"category"`
}

// CartLineView shows the captured price; product is null once deleted.
type CartLineView struct {
	ProductID string          `json:"productId"`
	Product   *ProductSummary `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	ID         string          `json:"id"`
	Items      []CartLineView  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"totalItems"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type AddItemInput struct {
	ProductID string
	Quantity  int
}

type UpdateItemInput struct {
	ProductID string
	Quantity  int
}

// GetCart returns the caller's cart, creating an empty one on first access.
func (u *CartUsecase) GetCart(ctx context.Context, actor Actor) (CartView, error) {
	if err := requireActor(actor); err != nil {
		return CartView{}, err
	}

	cart, err := u.carts.GetOrCreateByUserID(ctx, actor.UserID)
	if err != nil {
		return CartView{}, internalError(ctx, "get or create cart", err)
	}
	return u.view(ctx, cart)
}

func (u *CartUsecase) AddItem(ctx context.Context, actor Actor, in AddItemInput) (CartView, error) {
	if err := requireActor(actor); err != nil {
		return CartView{}, err
	}
	if in.ProductID == "" {
		return CartView{}, badRequest("productId is required")
	}
	if in.Quantity < 1 {
		return CartView{}, badRequest(model.ErrInvalidQuantity.Error())
	}
	if !validID(in.ProductID) {
		return CartView{}, notFound("product not found")
	}

	var cart model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product not found")
		}
		if err != nil {
			return internalError(ctx, "find product", err)
		}

		cart, err = r.Carts().GetOrCreateByUserID(ctx, actor.UserID)
		if err != nil {
			return internalError(ctx, "get or create cart", err)
		}
		if err := cart.AddItem(p.ID, in.Quantity, p.Price); err != nil {
			return badRequest(err.Error())
		}
		if err := r.Carts().Save(ctx, &cart); err != nil {
			return internalError(ctx, "save cart", err)
		}
		return nil
	})
	if err != nil {
		return CartView{}, err
	}

	cartMutations.WithLabelValues("add").Inc()
	return u.view(ctx, cart)
}

// UpdateItemQuantity sets a line's quantity; 0 or less removes the line.
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, actor Actor, in UpdateItemInput) (CartView, error) {
	if err := requireActor(actor); err != nil {
		return CartView{}, err
	}
	if in.ProductID == "" {
		return CartView{}, badRequest("productId is required")
	}

	cart, err := u.mutate(ctx, actor, func(c *model.Cart) error {
		return c.UpdateItemQuantity(in.ProductID, in.Quantity)
	})
	if err != nil {
		return CartView{}, err
	}

	cartMutations.WithLabelValues("update").Inc()
	return u.view(ctx, cart)
}

func (u *CartUsecase) RemoveItem(ctx context.Context, actor Actor, productID string) (CartView, error) {
	if err := requireActor(actor); err != nil {
		return CartView{}, err
	}

	cart, err := u.mutate(ctx, actor, func(c *model.Cart) error {
		return c.RemoveItem(productID)
	})
	if err != nil {
		return CartView{}, err
	}

	cartMutations.WithLabelValues("remove").Inc()
	return u.view(ctx, cart)
}

// Clear empties the cart but keeps it.
func (u *CartUsecase) Clear(ctx context.Context, actor Actor) (CartView, error) {
	if err := requireActor(actor); err != nil {
		return CartView{}, err
	}

	cart, err := u.mutate(ctx, actor, func(c *model.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil {
		return CartView{}, err
	}

	cartMutations.WithLabelValues("clear").Inc()
	return u.view(ctx, cart)
}

// mutate locks an existing cart, applies fn and saves. A missing cart is a 404.
func (u *CartUsecase) mutate(ctx context.Context, actor Actor, fn func(c *model.Cart) error) (model.Cart, error) {
	var cart model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		cart, err = r.Carts().FindByUserIDForUpdate(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("cart not found")
		}
		if err != nil {
			return internalError(ctx, "find cart", err)
		}

		if err := fn(&cart); err != nil {
			if errors.Is(err, model.ErrItemNotInCart) {
				return notFound(err.Error())
			}
			return badRequest(err.Error())
		}
		if err := r.Carts().Save(ctx, &cart); err != nil {
			return internalError(ctx, "save cart", err)
		}
		return nil
	})
	return cart, err
}

func (u *CartUsecase) view(ctx context.Context, cart model.Cart) (CartView, error) {
	products, err := u.products.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return CartView{}, internalError(ctx, "load cart products", err)
	}

	out := CartView{
		ID:        cart.ID,
		Items:     make([]CartLineView, 0, len(cart.Items)),
		Total:     cart.Total,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, it := range cart.Items {
		line := CartLineView{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
			Subtotal:  it.Subtotal(),
		}
		if p, ok := products[it.ProductID]; ok {
			line.Product = &ProductSummary{
				ID:       p.ID,
				Name:     p.Name,
				Price:    p.Price,
				Image:    p.Image,
				Category: p.Category,
			}
		}
		out.Items = append(out.Items, line)
		out.TotalItems += it.Quantity
	}
	return out, nil
}
