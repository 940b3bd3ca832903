package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/auth"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// Session is the result of a successful sign-in.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

// AuthService signs users in and out.
type AuthService struct {
	users  repo.UserRepo
	tokens repo.TokenRepo
	issuer *auth.Issuer
	now    func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repo.UserRepo, tokens repo.TokenRepo, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, issuer: issuer, now: time.Now}
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

// Login checks the credentials and issues a token. Unknown email and wrong
// password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, errBadCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, errBadCredentials
	}

	token, claims, err := s.issuer.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Authenticate validates a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.issuer.Validate(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
	}
	return claims, nil
}

// Logout revokes the token described by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return fmt.Errorf("%w: no session", domain.ErrUnauthorized)
	}
	exp := s.now()
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return s.tokens.Revoke(ctx, claims.ID, exp)
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (domain.User, error) {
	if claims == nil {
		return domain.User{}, fmt.Errorf("%w: no session", domain.ErrUnauthorized)
	}
	id, err := claims.UserID()
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
	}
	return u, err
}

// Register creates an account. Accounts are provisioned by an operator;
// there is no public sign-up route.
func (s *AuthService) Register(ctx context.Context, email, password string) (domain.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	if len(password) < auth.MinPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters",
			domain.ErrValidation, auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.users.Create(ctx, addr.Address, hash)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		return domain.User{}, fmt.Errorf("%w: email already registered", domain.ErrValidation)
	}
	return u, err
}

// PurgeRevoked drops revocations whose tokens have expired anyway.
func (s *AuthService) PurgeRevoked(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx, s.now())
}
