package middleware

import (
	"net/http"

	repo "storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// UserGuard reloads the caller set by AuthJWT. Inactive users and tokens
// whose tv no longer matches the stored token version are rejected, and the
// stored role replaces the one in the token.
func UserGuard(users repo.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(string)
			if !ok || userID == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if !user.IsActive || user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserRoleKey, string(user.Role))
			return next(c)
		}
	}
}

// RequireUser is AuthJWT followed by UserGuard.
func RequireUser(authn echo.MiddlewareFunc, users repo.UserRepository) echo.MiddlewareFunc {
	guard := UserGuard(users)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return authn(guard(next))
	}
}
