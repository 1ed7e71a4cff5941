package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	dErrors "vaultkeeper/pkg/domain-errors"
)

const signingKey = "test-signing-key"

func mint(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	validator := NewValidator(signingKey)

	t.Run("valid token yields the subject", func(t *testing.T) {
		raw := mint(t, signingKey, jwt.MapClaims{
			"sub": "account-123",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		subject, err := validator.ValidateToken(raw)
		require.NoError(t, err)
		require.Equal(t, "account-123", subject)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		raw := mint(t, signingKey, jwt.MapClaims{
			"sub": "account-123",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := validator.ValidateToken(raw)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key is unauthorized", func(t *testing.T) {
		raw := mint(t, "another-key", jwt.MapClaims{"sub": "account-123"})

		_, err := validator.ValidateToken(raw)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing subject is unauthorized", func(t *testing.T) {
		raw := mint(t, signingKey, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := validator.ValidateToken(raw)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is unauthorized", func(t *testing.T) {
		_, err := validator.ValidateToken("not.a.token")
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
