package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	uc *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, requireUser echo.MiddlewareFunc) {
	g := e.Group("/cart", requireUser)
	g.GET("", h.get)
	g.POST("", h.add)
	g.PUT("", h.update)
	g.DELETE("", h.clear)
	g.DELETE("/:productId", h.remove)
}

func (h *CartHandler) get(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.GetCart(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

// quantity defaults to 1 when omitted
func (h *CartHandler) add(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	out, err := h.uc.AddItem(c.Request().Context(), actor, usecase.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  qty,
	})
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *CartHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Quantity == nil {
		return fail(c, http.StatusBadRequest, "quantity is required")
	}

	out, err := h.uc.UpdateItemQuantity(c.Request().Context(), actor, usecase.UpdateItemInput{
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *CartHandler) remove(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), actor, c.Param("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.Clear(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}
