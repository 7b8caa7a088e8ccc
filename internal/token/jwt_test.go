package token

import (
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", 24*time.Hour)

	raw, err := m.Generate(42, "user@example.com")
	require.NoError(t, err)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := m.Generate(1, "a@b.c")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(raw)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "expired")
}

func TestManager_WrongSecret(t *testing.T) {
	raw, err := NewManager("one", time.Hour).Generate(1, "a@b.c")
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).Parse(raw)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour).Parse(raw)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestManager_Garbage(t *testing.T) {
	_, err := NewManager("secret", time.Hour).Parse("not.a.token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
