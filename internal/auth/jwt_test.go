package auth_test

import (
	"testing"

	"jojoprompts/config"
	"jojoprompts/internal/auth"
	"jojoprompts/internal/domain"

	"github.com/stretchr/testify/require"
)

func jwtConfig(secret string) *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: secret, Issuer: "jojoprompts"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := jwtConfig("test-secret")
	for _, role := range []string{domain.RoleUser, domain.RoleAdmin} {
		token, err := auth.GenerateAccessToken(cfg, "user-1", "u@example.com", role)
		require.NoError(t, err)

		claims, err := auth.ParseAccessToken(cfg, token)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.UserID)
		require.Equal(t, "u@example.com", claims.Email)
		require.Equal(t, role, claims.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateAccessToken(jwtConfig("secret-a"), "user-1", "u@example.com", domain.RoleUser)
	require.NoError(t, err)

	_, err = auth.ParseAccessToken(jwtConfig("secret-b"), token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := auth.ParseAccessToken(jwtConfig("test-secret"), "not-a-token")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
