// Package memory keeps every repository in process memory. It backs the
// "memory" database driver and the usecase tests.
package memory

import (
	"context"
	"sync"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type state struct {
	users     map[string]model.User
	products  map[string]model.Product
	carts     map[string]model.Cart // by user id
	orders    map[string]model.Order
	auditLogs []model.AuditLog
}

func newState() *state {
	return &state{
		users:    map[string]model.User{},
		products: map[string]model.Product{},
		carts:    map[string]model.Cart{},
		orders:   map[string]model.Order{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = cloneCart(v)
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	c.auditLogs = append([]model.AuditLog(nil), s.auditLogs...)
	return c
}

func cloneCart(c model.Cart) model.Cart {
	c.Items = append([]model.CartItem{}, c.Items...)
	return c
}

func cloneOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem{}, o.Items...)
	return o
}

// backend is where a repository reads and writes: the live store, or the
// private copy of a running transaction.
type backend interface {
	read(fn func(st *state))
	write(fn func(st *state) error) error
}

// Store serializes writers. A transaction works on a copy that replaces the
// live state only when fn succeeds.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type txBackend struct {
	st *state
}

func (b txBackend) read(fn func(st *state))              { fn(b.st) }
func (b txBackend) write(fn func(st *state) error) error { return fn(b.st) }

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	b := txBackend{st: snapshot}
	if err := fn(&txRepos{
		orders:    &OrderRepository{b: b},
		carts:     &CartRepository{b: b},
		products:  &ProductRepository{b: b},
		auditLogs: &AuditLogRepository{b: b},
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) Users() *UserRepository         { return &UserRepository{b: s} }
func (s *Store) Products() *ProductRepository   { return &ProductRepository{b: s} }
func (s *Store) Carts() *CartRepository         { return &CartRepository{b: s} }
func (s *Store) Orders() *OrderRepository       { return &OrderRepository{b: s} }
func (s *Store) AuditLogs() *AuditLogRepository { return &AuditLogRepository{b: s} }

type txRepos struct {
	orders    repo.OrderRepository
	carts     repo.CartRepository
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (r *txRepos) Orders() repo.OrderRepository       { return r.orders }
func (r *txRepos) Carts() repo.CartRepository         { return r.carts }
func (r *txRepos) Products() repo.ProductRepository   { return r.products }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

var _ repo.TransactionManager = (*Store)(nil)
