package usecase

import (
	"net/http"

	"storefront/internal/domain/model"

	"github.com/google/uuid"
)

// Actor is the authenticated caller, passed explicitly to every operation.
type Actor struct {
	UserID string
	Role   model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func requireActor(a Actor) error {
	if a.UserID == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return nil
}

// validID rejects ids that could never exist, before they reach the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
