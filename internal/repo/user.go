package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// ErrDuplicateEmail is returned by UserRepo.Create when the email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepo persists sign-in accounts.
type UserRepo interface {
	// Create inserts a user. Emails are unique case-insensitively.
	Create(ctx context.Context, email, passwordHash string) (domain.User, error)

	// GetByEmail looks a user up case-insensitively.
	// Returns domain.ErrNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByID returns domain.ErrNotFound when no account matches.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

func (r *pgUserRepo) Create(ctx context.Context, email, passwordHash string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, password_hash)
		VALUES (@email, @hash)
		RETURNING id, email, password_hash, created_at`

	u, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email, "hash": passwordHash}))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", ErrDuplicateEmail)
		}
		return domain.User{}, wrapErr("repo.UserRepo.Create", err)
	}
	return u, nil
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE LOWER(email) = LOWER(@email)`

	u, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.User{}, wrapErr("repo.UserRepo.GetByEmail", err)
	}
	return u, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = @id`

	u, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, wrapErr("repo.UserRepo.GetByID", err)
	}
	return u, nil
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u  domain.User
		id pgtype.UUID
	)
	if err := s.Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	return u, nil
}

// TokenRepo records signed-out access tokens until they expire.
type TokenRepo interface {
	// Revoke marks the token ID as signed out. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether the token ID was signed out.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpired deletes revocations whose token expired before now and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type pgTokenRepo struct {
	db db
}

// NewTokenRepo constructs a TokenRepo backed by the provided db connection.
func NewTokenRepo(db db) TokenRepo {
	return &pgTokenRepo{db: db}
}

func (r *pgTokenRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	const q = `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES (@jti, @expires_at)
		ON CONFLICT (jti) DO NOTHING`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"jti": jti, "expires_at": expiresAt}); err != nil {
		return wrapErr("repo.TokenRepo.Revoke", err)
	}
	return nil
}

func (r *pgTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = @jti)`

	var revoked bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"jti": jti}).Scan(&revoked); err != nil {
		return false, wrapErr("repo.TokenRepo.IsRevoked", err)
	}
	return revoked, nil
}

func (r *pgTokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < @now`, pgx.NamedArgs{"now": now})
	if err != nil {
		return 0, wrapErr("repo.TokenRepo.PurgeExpired", err)
	}
	return tag.RowsAffected(), nil
}
