package server

import (
	"storefront/internal/auth"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Tokens   *auth.TokenService
	Users    repo.UserRepository
	Auth     *usecase.AuthUsecase
	Products *usecase.ProductUsecase
	Carts    *usecase.CartUsecase
	Orders   *usecase.OrderUsecase
	Payments *usecase.PaymentUsecase
	Audit    *usecase.AuditUsecase
}

func RegisterRoutes(e *echo.Echo, d Deps) {
	requireUser := middleware.RequireUser(middleware.AuthJWT(d.Tokens), d.Users)

	handler.RegisterOpsRoutes(e)
	handler.NewAuthHandler(d.Auth).RegisterRoutes(e, requireUser)
	handler.NewProductHandler(d.Products).RegisterRoutes(e, requireUser)
	handler.NewCartHandler(d.Carts).RegisterRoutes(e, requireUser)
	handler.NewOrderHandler(d.Orders).RegisterRoutes(e, requireUser)
	handler.NewPaymentHandler(d.Payments).RegisterRoutes(e, requireUser)
	handler.NewAdminHandler(d.Orders, d.Auth, d.Audit).RegisterRoutes(e, requireUser)
}
