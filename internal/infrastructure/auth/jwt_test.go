package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pocketbook/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars",
		Issuer:     "pocketbook-test",
		Expiration: time.Hour,
	})
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestTokenService()

	token, expiresAt, err := svc.Issue("u1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "pocketbook-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.RemainingTTL().Seconds(), 5)
}

func TestIssue_RequiresUserID(t *testing.T) {
	_, _, err := newTestTokenService().Issue("")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestIssue_UniqueIDs(t *testing.T) {
	svc := newTestTokenService()
	a, _, err := svc.Issue("u1")
	require.NoError(t, err)
	b, _, err := svc.Issue("u1")
	require.NoError(t, err)

	ca, _ := svc.Validate(a)
	cb, _ := svc.Validate(b)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestTokenService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Issue("u1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_Rejects(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenService(config.JWTConfig{Secret: "another-secret-key-of-32-chars!!", Issuer: "pocketbook-test", Expiration: time.Hour})
	token, _, err := other.Issue("u1")
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "signed with a different secret")

	foreign := NewTokenService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere", Expiration: time.Hour})
	token, _, err = foreign.Issue("u1")
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "different issuer")
}

func TestValidate_MissingUserID(t *testing.T) {
	svc := newTestTokenService()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "pocketbook-test",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestTokenService()
	claims := &Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "pocketbook-test"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
