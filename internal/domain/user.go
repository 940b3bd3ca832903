package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account allowed to sign in.
type User struct {
	ID           uuid.UUID `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}
