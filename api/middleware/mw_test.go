package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"

	"github.com/crmhub/crm-platform-services/internal/authn"
)

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	next, called := okHandler()

	w := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(w, httptest.NewRequest("GET", "/users", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *called)
}

func TestJWTMiddlewareBadFormat(t *testing.T) {
	next, called := okHandler()

	r := httptest.NewRequest("GET", "/users", nil)
	r.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *called)
}

func TestJWTMiddlewareAddsClaims(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &authn.Claims{
		Username: "root@crmhub.example",
		Groups:   []string{"root-admin"},
	}).SignedString([]byte("test-key"))
	assert.NoError(t, err)

	var got authn.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(ClaimsKey).(authn.Claims)
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest("GET", "/users", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "root@crmhub.example", got.Username)
}

func TestAuthorize(t *testing.T) {
	claims := authn.Claims{Groups: []string{"agent"}}

	assert.True(t, Authorize(claims, "agent", "admin"))
	assert.False(t, Authorize(claims, "root-admin"))
	assert.True(t, Authorize(claims))
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	next, called := okHandler()

	w := httptest.NewRecorder()
	RequireRole("admin")(next).ServeHTTP(w, httptest.NewRequest("GET", "/users", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *called)
}

func TestRequireRoleInsufficientRole(t *testing.T) {
	next, called := okHandler()

	r := httptest.NewRequest("POST", "/users", nil)
	ctx := context.WithValue(r.Context(), ClaimsKey, authn.Claims{Groups: []string{"agent"}})
	w := httptest.NewRecorder()
	RequireRole("root-admin")(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, *called)
}

func TestRequireRoleAllows(t *testing.T) {
	next, called := okHandler()

	r := httptest.NewRequest("POST", "/users", nil)
	ctx := context.WithValue(r.Context(), ClaimsKey, authn.Claims{Groups: []string{"root-admin"}})
	w := httptest.NewRecorder()
	RequireRole("root-admin")(next).ServeHTTP(w, r.WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
}
