package models

// Role is the closed set of CRM roles. A role is stored as directory group
// membership, not as a user attribute.
type Role string

const (
	RoleRootAdmin Role = "root-admin"
	RoleAdmin     Role = "admin"
	RoleAgent     Role = "agent"
)

// ValidRole reports whether the given string names one of the CRM roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleRootAdmin, RoleAdmin, RoleAgent:
		return true
	}
	return false
}

// User represents a directory principal as exposed by the API.
type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Enabled   bool   `json:"enabled"`
}

// CreateUserRequest is the payload for creating a new user.
type CreateUserRequest struct {
	Email             string `json:"email" validate:"required,email"`
	FirstName         string `json:"first_name" validate:"required,min=1,max=100"`
	LastName          string `json:"last_name" validate:"required,min=1,max=100"`
	Role              Role   `json:"role" validate:"required,oneof=root-admin admin agent"`
	TemporaryPassword string `json:"temporary_password" validate:"required,min=8"`
}

type CreateUserResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Code    int    `json:"code"`
}

// GetUsersRequest carries the paging parameters for a list-users call. The
// pagination token is opaque and passed back to the directory verbatim.
type GetUsersRequest struct {
	Limit           int `validate:"gte=1,lte=60"`
	PaginationToken string
}

type GetUsersResponse struct {
	Users           []User `json:"users"`
	PaginationToken string `json:"pagination_token,omitempty"`
	Message         string `json:"message"`
	Code            int    `json:"code"`
}

type EnableUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type DisableUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserStateResponse acknowledges an enable or disable call.
type UserStateResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// UpdateUserRequest updates any of first name, last name or role. At least one
// field must be present; this is checked in the service layer before any
// directory call is made.
type UpdateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Role      *Role   `json:"role,omitempty" validate:"omitempty,oneof=root-admin admin agent"`
}

// HasFields reports whether at least one updatable field is present.
func (r UpdateUserRequest) HasFields() bool {
	return r.FirstName != nil || r.LastName != nil || r.Role != nil
}

type UpdateUserResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Code    int    `json:"code"`
}

// UpdatePartialFailure is returned when the attribute update succeeded but the
// role reassignment did not, so the caller can retry just the failed phase.
type UpdatePartialFailure struct {
	Message           string `json:"message"`
	AttributesUpdated bool   `json:"attributes_updated"`
	RoleUpdated       bool   `json:"role_updated"`
	Code              int    `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordResponse struct {
	Message     string `json:"message"`
	Destination string `json:"destination,omitempty"`
	Code        int    `json:"code"`
}

type ConfirmForgotPasswordRequest struct {
	Email            string `json:"email" validate:"required,email"`
	ConfirmationCode string `json:"confirmation_code" validate:"required,len=6"`
	NewPassword      string `json:"new_password" validate:"required,min=8"`
}

type ConfirmForgotPasswordResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse either carries a full token triple or, when the directory
// interrupted the flow, a challenge descriptor.
type LoginResponse struct {
	Message             string            `json:"message"`
	AccessToken         string            `json:"access_token,omitempty"`
	IDToken             string            `json:"id_token,omitempty"`
	RefreshToken        string            `json:"refresh_token,omitempty"`
	ExpiresIn           int32             `json:"expires_in,omitempty"`
	TokenType           string            `json:"token_type,omitempty"`
	Challenge           string            `json:"challenge,omitempty"`
	Session             string            `json:"session,omitempty"`
	ChallengeParameters map[string]string `json:"challenge_parameters,omitempty"`
	Code                int               `json:"code"`
}

type RespondToChallengeRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Session     string `json:"session" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type RespondToChallengeResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int32  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Code         int    `json:"code"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshTokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int32  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Code        int    `json:"code"`
}

type LogoutRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type LogoutResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}
