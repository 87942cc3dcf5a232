package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Registration is the input of UserService.Register.
type Registration struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// UserService owns registration, login and profile updates.
type UserService struct {
	store  ledger.Store
	issuer *auth.Issuer
	now    func() time.Time

	// principals caches token subjects to users, keyed by email.
	principals cache.Cache[core.User]
}

func NewUserService(store ledger.Store, issuer *auth.Issuer) *UserService {
	return &UserService{store: store, issuer: issuer, now: time.Now}
}

// WithPrincipalCache makes Authenticate serve repeated lookups of the same
// email from c. Profile updates evict the affected entries.
func (s *UserService) WithPrincipalCache(c cache.Cache[core.User]) *UserService {
	s.principals = c
	return s
}

// Register creates the user and its default checking account.
func (s *UserService) Register(ctx context.Context, r Registration) (core.User, error) {
	if len(r.Password) < auth.MinPasswordLength {
		return core.User{}, core.ErrWeakPassword
	}
	u := core.User{
		ID:        core.NewID(),
		Email:     core.NormalizeEmail(r.Email),
		Name:      strings.TrimSpace(r.Name),
		CreatedAt: s.now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	if err := s.store.CreateUser(ctx, u); err != nil {
		return core.User{}, err
	}

	acc := core.Account{
		ID:          core.NewID(),
		OwnerID:     u.ID,
		Name:        core.DefaultAccountName,
		Type:        core.Checking,
		Permissions: core.Permissions{},
		CreatedAt:   u.CreatedAt,
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return core.User{}, fmt.Errorf("create default account: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "default_account_id", acc.ID)
	return u, nil
}

// Login verifies the credentials and returns a signed access token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrUserNotFound) {
		return "", core.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return "", core.ErrInvalidCredentials
	}
	return s.issuer.Issue(u.Email)
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (core.User, error) {
	email, err := s.issuer.Parse(token)
	if err != nil {
		return core.User{}, err
	}
	key := core.NormalizeEmail(email)
	if s.principals != nil {
		if u, ok := s.principals.Get(key); ok {
			return u, nil
		}
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, core.ErrInvalidToken
	}
	if err != nil {
		return core.User{}, err
	}
	if s.principals != nil {
		s.principals.Set(key, u)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id core.ID) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateProfile applies name, email and password changes to the caller.
func (s *UserService) UpdateProfile(ctx context.Context, id core.ID, upd core.UserUpdate) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	previousEmail := u.Email
	u, err = upd.Apply(u)
	if err != nil {
		return core.User{}, err
	}
	if upd.Password != nil {
		if len(*upd.Password) < auth.MinPasswordLength {
			return core.User{}, core.ErrWeakPassword
		}
		if u.PasswordHash, err = auth.HashPassword(*upd.Password); err != nil {
			return core.User{}, err
		}
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return core.User{}, err
	}
	if s.principals != nil {
		s.principals.Delete(previousEmail)
		s.principals.Delete(u.Email)
	}
	return u, nil
}
