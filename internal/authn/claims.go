package authn

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidJWT = errors.New("invalid jwt token")
var ErrInvalidClaims = errors.New("invalid claims")

// Claims carries the identity-directory JWT claims this service reads. Groups
// holds the directory group names, which double as CRM roles.
type Claims struct {
	jwt.StandardClaims
	Username string   `json:"cognito:username"`
	Email    string   `json:"email"`
	Groups   []string `json:"cognito:groups"`
}

// ParseClaims decodes the claims from a bearer token. Signature verification is
// the API gateway's job; this only needs the decoded payload.
func ParseClaims(token string) (Claims, error) {
	claims := Claims{}
	// Check if token is JWT by attempting to parse it
	if t, err := jwt.ParseWithClaims(token, &claims, nil); err != nil {
		// Ignore validation errors (no need to check signing of key)
		if _, ok := err.(*jwt.ValidationError); !ok {
			return claims, ErrInvalidJWT
		}

		// Check if token was decoded successfully
		if t == nil {
			return claims, ErrInvalidClaims
		}
	}
	return claims, nil
}

// HasAnyRole reports whether the claims carry at least one of the given roles.
func (c Claims) HasAnyRole(roles ...string) bool {
	for _, required := range roles {
		for _, group := range c.Groups {
			if strings.EqualFold(group, required) {
				return true
			}
		}
	}
	return false
}
