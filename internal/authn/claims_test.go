package authn

import (
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

func signedToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString([]byte("test-key"))
	assert.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	token := signedToken(t, Claims{
		Username: "root@crmhub.example",
		Email:    "root@crmhub.example",
		Groups:   []string{"root-admin"},
	})

	claims, err := ParseClaims(token)

	assert.NoError(t, err)
	assert.Equal(t, "root@crmhub.example", claims.Username)
	assert.Equal(t, []string{"root-admin"}, claims.Groups)
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	_, err := ParseClaims("not-a-jwt")

	assert.Error(t, err)
}

func TestHasAnyRole(t *testing.T) {
	claims := Claims{Groups: []string{"admin"}}

	assert.True(t, claims.HasAnyRole("root-admin", "admin"))
	assert.True(t, claims.HasAnyRole("Admin"))
	assert.False(t, claims.HasAnyRole("root-admin"))
	assert.False(t, Claims{}.HasAnyRole("admin"))
}
