package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// orderView adds the customer-facing order number.
type orderView struct {
	model.Order
	OrderNumber string `json:"orderNumber"`
}

func toOrderView(o model.Order) orderView {
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	return orderView{Order: o, OrderNumber: o.Number()}
}

func toOrderViews(orders []model.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, requireUser echo.MiddlewareFunc) {
	g := e.Group("/orders", requireUser)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.PlaceOrderInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	// the key comes from the header only, never the body
	req.IdempotencyKey = c.Request().Header.Get(idempotencyHeader)

	out, err := h.uc.PlaceOrder(c.Request().Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	return success(c, status, toOrderView(out.Order))
}

func (h *OrderHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.ListOrders(c.Request().Context(), actor, usecase.ListOrdersInput{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Success:    true,
		Data:       toOrderViews(out.Orders),
		Pagination: &out.Pagination,
	})
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	o, err := h.uc.GetOrder(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, toOrderView(o))
}

func (h *OrderHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.OrderPatch
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	o, err := h.uc.UpdateOrder(c.Request().Context(), actor, c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, toOrderView(o))
}
