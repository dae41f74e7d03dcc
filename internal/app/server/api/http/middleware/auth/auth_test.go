package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, userID int64, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuth_ParseToken(t *testing.T) {
	a := New(testSecret, slog.Default())
	expiry := time.Now().Add(time.Hour)

	t.Run("valid token", func(t *testing.T) {
		userID, err := a.ParseToken(signToken(t, testSecret, 42, expiry))

		require.NoError(t, err)
		assert.Equal(t, int64(42), userID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := a.ParseToken(signToken(t, "other-secret", 42, expiry))
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := a.ParseToken(signToken(t, testSecret, 42, time.Now().Add(-time.Hour)))
		assert.Error(t, err)
	})

	t.Run("missing uid claim", func(t *testing.T) {
		_, err := a.ParseToken(signToken(t, testSecret, 0, expiry))
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		// alg:none tokens must never validate.
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42})
		unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = a.ParseToken(unsigned)
		assert.Error(t, err)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := a.ParseToken("not.a.jwt")
		assert.Error(t, err)
	})
}

func TestUserIDContext(t *testing.T) {
	ctx := WithUserID(context.Background(), 7)

	userID, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), userID)

	_, ok = GetUserID(context.Background())
	assert.False(t, ok)
}
