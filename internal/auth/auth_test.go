package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/auth"
	"github.com/pkordes/trip-planner/backend/internal/domain"
)

func testUser() domain.User {
	return domain.User{ID: uuid.New(), Email: "voyageur@example.com"}
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	u := testUser()

	token, issued, err := iss.Issue(u)
	require.NoError(t, err)

	claims, err := iss.Validate("Bearer " + token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestIssuer_RejectsOtherSecret(t *testing.T) {
	a, _ := auth.NewIssuer("secret-a", time.Hour)
	b, _ := auth.NewIssuer("secret-b", time.Hour)

	token, _, err := a.Issue(testUser())
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	iss, _ := auth.NewIssuer("secret", time.Millisecond)
	token, _, err := iss.Issue(testUser())
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = iss.Validate(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestIssuer_RejectsNoneAlgorithm(t *testing.T) {
	iss, _ := auth.NewIssuer("secret", time.Hour)
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Validate(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestIssuer_MissingToken(t *testing.T) {
	iss, _ := auth.NewIssuer("secret", time.Hour)

	_, err := iss.Validate("Bearer ")

	assert.ErrorIs(t, err, auth.ErrMissingToken)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := auth.NewIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("corse2026!")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "corse2026!"))
	assert.False(t, auth.CheckPassword(hash, "wrong-password"))
	assert.False(t, auth.CheckPassword("not-a-hash", "corse2026!"))

	_, err = auth.HashPassword("short")
	assert.Error(t, err)
}
