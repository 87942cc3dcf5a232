// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	mu           sync.Mutex
	users        map[core.ID]core.User
	accounts     map[core.ID]core.Account
	categories   map[core.ID]core.Category
	transactions map[core.ID]core.Transaction
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        map[core.ID]core.User{},
		accounts:     map[core.ID]core.Account{},
		categories:   map[core.ID]core.Category{},
		transactions: map[core.ID]core.Transaction{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = core.NormalizeEmail(u.Email)
	if s.emailTaken(u.Email, "") {
		return core.ErrEmailTaken
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id core.ID) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = core.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return core.ErrUserNotFound
	}
	u.Email = core.NormalizeEmail(u.Email)
	if s.emailTaken(u.Email, u.ID) {
		return core.ErrEmailTaken
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) emailTaken(email string, except core.ID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (s *Store) GetAccount(_ context.Context, id core.ID) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (s *Store) ListOwnedAccounts(_ context.Context, ownerID core.ID) ([]core.Account, error) {
	return s.listAccounts(func(a core.Account) bool { return a.OwnerID == ownerID }), nil
}

func (s *Store) ListSharedAccounts(_ context.Context, userID core.ID) ([]core.Account, error) {
	return s.listAccounts(func(a core.Account) bool {
		_, ok := a.Permissions[userID]
		return ok
	}), nil
}

func (s *Store) listAccounts(keep func(core.Account) bool) []core.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Account{}
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok {
		return core.ErrAccountNotFound
	}
	cur.Name = a.Name
	cur.Type = a.Type
	s.accounts[a.ID] = cur
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return core.ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) UpsertPermission(_ context.Context, accountID, userID core.ID, level core.PermissionLevel) (core.Permissions, error) {
	return s.updatePermissions(accountID, func(p core.Permissions) core.Permissions { return p.With(userID, level) })
}

func (s *Store) RemovePermission(_ context.Context, accountID, userID core.ID) (core.Permissions, error) {
	return s.updatePermissions(accountID, func(p core.Permissions) core.Permissions { return p.Without(userID) })
}

func (s *Store) updatePermissions(accountID core.ID, apply func(core.Permissions) core.Permissions) (core.Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	a.Permissions = apply(a.Permissions)
	s.accounts[accountID] = a
	return cloneAccount(a).Permissions, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryNameTaken(c) {
		return core.ErrCategoryExists
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id core.ID) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, ownerID core.ID) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Category{}
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return core.ErrCategoryNotFound
	}
	if s.categoryNameTaken(c) {
		return core.ErrCategoryExists
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return core.ErrCategoryNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) categoryNameTaken(c core.Category) bool {
	for id, other := range s.categories {
		if id != c.ID && other.OwnerID == c.OwnerID && other.Name == c.Name {
			return true
		}
	}
	return false
}

func cloneAccount(a core.Account) core.Account {
	a.Permissions = a.Permissions.Clone()
	return a
}
