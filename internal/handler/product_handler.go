package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Reads are public, writes need a signed-in user.
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, requireUser echo.MiddlewareFunc) {
	g := e.Group("/products")
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("", h.create, requireUser)
	g.PUT("/:id", h.update, requireUser)
	g.DELETE("/:id", h.delete, requireUser)
}

func (h *ProductHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), usecase.ListProductsInput{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Gender:   c.QueryParam("gender"),
		Season:   c.QueryParam("season"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	p, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, p)
}

func (h *ProductHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.CreateProductInput
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	p, err := h.uc.Create(c.Request().Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req usecase.ProductPatch
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	p, err := h.uc.Update(c.Request().Context(), actor, c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, p)
}

func (h *ProductHandler) delete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	p, err := h.uc.Delete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: p, Message: "product deleted"})
}
