package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain/model"
	"storefront/internal/logging"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type UserDTO struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name,omitempty"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"isActive"`
}

type AccessTokenDTO struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,emaillike,max=255"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"max=255"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOutput struct {
	User  UserDTO        `json:"user"`
	Token AccessTokenDTO `json:"token"`
}

type ForceLogoutOutput struct {
	UserID          string `json:"userId"`
	NewTokenVersion int    `json:"newTokenVersion"`
}

type AuthUsecase struct {
	users      repo.UserRepository
	tokens     *auth.TokenService
	bcryptCost int
	clock      Clock
}

func NewAuthUsecase(users repo.UserRepository, tokens *auth.TokenService, bcryptCost int) *AuthUsecase {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthUsecase{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		clock:      SystemClock,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Name = strings.TrimSpace(in.Name)

	if err := validator.Struct(in); err != nil {
		return UserDTO{}, badRequest(err.Error())
	}
	if len(in.Password) < minPasswordLen {
		return UserDTO{}, badRequest("password must be at least 6 characters")
	}

	if _, err := u.users.FindByEmail(ctx, in.Email); err == nil {
		return UserDTO{}, NewHTTPError(http.StatusConflict, "email already registered")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, internalError(ctx, "find user by email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return UserDTO{}, internalError(ctx, "hash password", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		// lost a race on the unique email index
		if errors.Is(err, repo.ErrDuplicate) {
			return UserDTO{}, NewHTTPError(http.StatusConflict, "email already registered")
		}
		return UserDTO{}, internalError(ctx, "create user", err)
	}

	logging.FromCtx(ctx).Info("user registered", "user_id", user.ID)
	return toUserDTO(user), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return LoginOutput{}, badRequest("email and password are required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, internalError(ctx, "find user by email", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(in.Password))); err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return LoginOutput{}, forbidden("account is disabled")
	}

	now := u.clock.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		logging.FromCtx(ctx).Warn("update last login failed", "user_id", user.ID, "err", err)
	}

	token, err := u.tokens.Issue(user)
	if err != nil {
		return LoginOutput{}, internalError(ctx, "issue access token", err)
	}

	return LoginOutput{
		User: toUserDTO(user),
		Token: AccessTokenDTO{
			AccessToken: token,
			ExpiresIn:   int(u.tokens.TTL() / time.Second),
		},
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, actor Actor) (UserDTO, error) {
	if err := requireActor(actor); err != nil {
		return UserDTO{}, err
	}

	user, err := u.users.FindByID(ctx, actor.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return UserDTO{}, internalError(ctx, "find user", err)
	}
	if !user.IsActive {
		return UserDTO{}, forbidden("account is disabled")
	}
	return toUserDTO(user), nil
}

// Logout revokes every token the caller holds by bumping the token version.
func (u *AuthUsecase) Logout(ctx context.Context, actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := u.users.IncrementTokenVersion(ctx, actor.UserID); err != nil {
		return internalError(ctx, "increment token version", err)
	}
	return nil
}

// ForceLogout is Logout for another user, admin only.
func (u *AuthUsecase) ForceLogout(ctx context.Context, actor Actor, targetUserID string) (ForceLogoutOutput, error) {
	if err := requireActor(actor); err != nil {
		return ForceLogoutOutput{}, err
	}
	if !actor.IsAdmin() {
		return ForceLogoutOutput{}, forbidden("admin only")
	}
	if !validID(targetUserID) {
		return ForceLogoutOutput{}, notFound("user not found")
	}

	err := u.users.IncrementTokenVersion(ctx, targetUserID)
	if errors.Is(err, repo.ErrNotFound) {
		return ForceLogoutOutput{}, notFound("user not found")
	}
	if err != nil {
		return ForceLogoutOutput{}, internalError(ctx, "increment token version", err)
	}

	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return ForceLogoutOutput{}, internalError(ctx, "find user", err)
	}

	logging.FromCtx(ctx).Info("user force logged out", "target_user_id", user.ID, "by", actor.UserID)
	return ForceLogoutOutput{UserID: user.ID, NewTokenVersion: user.TokenVersion}, nil
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}
