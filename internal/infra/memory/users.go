package memory

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type UserRepository struct {
	b backend
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	return r.b.write(func(st *state) error {
		for _, u := range st.users {
			if u.Email == user.Email || u.ID == user.ID {
				return repo.ErrDuplicate
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.b.read(func(st *state) { u, ok = st.users[id] })
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.b.read(func(st *state) {
		for _, cand := range st.users {
			if cand.Email == email {
				u, ok = cand, true
				return
			}
		}
	})
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.b.write(func(st *state) error {
		if _, ok := st.users[user.ID]; !ok {
			return repo.ErrNotFound
		}
		user.UpdatedAt = time.Now()
		st.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.b.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repo.ErrNotFound
		}
		u.TokenVersion++
		st.users[id] = u
		return nil
	})
}

var _ repo.UserRepository = (*UserRepository)(nil)
