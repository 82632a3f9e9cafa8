package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AdminHandler serves /admin. Every route needs an active admin.
type AdminHandler struct {
	orders *usecase.OrderUsecase
	auth   *usecase.AuthUsecase
	audit  *usecase.AuditUsecase
}

func NewAdminHandler(orders *usecase.OrderUsecase, auth *usecase.AuthUsecase, audit *usecase.AuditUsecase) *AdminHandler {
	return &AdminHandler{orders: orders, auth: auth, audit: audit}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, requireUser echo.MiddlewareFunc) {
	admin := e.Group("/admin", requireUser, middleware.AdminRoleGuard())
	admin.GET("/orders", h.listOrders)
	admin.POST("/users/:id/force-logout", h.forceLogout)
	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminHandler) listOrders(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.orders.AdminListOrders(c.Request().Context(), actor, usecase.ListOrdersInput{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Status: c.QueryParam("status"),
		UserID: c.QueryParam("userId"),
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

func (h *AdminHandler) forceLogout(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.auth.ForceLogout(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, out)
}

func (h *AdminHandler) listAuditLogs(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	logs, err := h.audit.List(c.Request().Context(), actor, usecase.ListAuditLogsInput{
		ActorUserID:  c.QueryParam("actorUserId"),
		ResourceType: c.QueryParam("resourceType"),
		ResourceID:   c.QueryParam("resourceId"),
		Limit:        queryInt(c, "limit"),
		Offset:       queryInt(c, "offset"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return success(c, http.StatusOK, logs)
}
