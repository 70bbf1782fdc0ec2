package directory

import (
	"context"

	"github.com/crmhub/crm-platform-services/models"
)

// TokenSet is the token triple issued on a successful authentication.
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int32
	TokenType    string
}

// Challenge describes a directory-issued interruption of the login flow.
type Challenge struct {
	Name       string
	Session    string
	Parameters map[string]string
}

// AuthOutcome is the result of a login or challenge response: exactly one of
// Tokens or Challenge is set.
type AuthOutcome struct {
	Tokens    *TokenSet
	Challenge *Challenge
}

// CodeDelivery describes where a password reset code was sent.
type CodeDelivery struct {
	Destination string
	Medium      string
	Attribute   string
}

// UserPage is one page of a user listing; PaginationToken is empty when the
// listing is exhausted.
type UserPage struct {
	Users           []models.User
	PaginationToken string
}

// Directory is the only interface through which the gateway talks to the
// managed identity directory. Implementations translate directory-native
// errors into *Error before returning.
type Directory interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error)
	ListUsers(ctx context.Context, limit int32, paginationToken string) (UserPage, error)
	EnableUser(ctx context.Context, email string) error
	DisableUser(ctx context.Context, email string) error
	UpdateUser(ctx context.Context, req models.UpdateUserRequest) (models.User, error)
	ForgotPassword(ctx context.Context, email string) (CodeDelivery, error)
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	Login(ctx context.Context, email, password string) (AuthOutcome, error)
	RespondToChallenge(ctx context.Context, email, session, newPassword string) (AuthOutcome, error)
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
	Logout(ctx context.Context, accessToken string) error
}
