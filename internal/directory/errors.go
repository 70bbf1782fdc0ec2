package directory

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// Kind classifies a directory failure into the gateway's error taxonomy.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindCredentialPolicy
	KindUnauthorized
	KindUnconfirmed
	KindResetRequired
	KindRateLimited
	KindCodeMismatch
	KindCodeExpired
)

// Error is the only error shape the directory adapter lets escape. The raw
// directory error is kept as the cause for logging, never for API responses.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// PartialUpdateError reports that the attribute phase of a two-phase user
// update succeeded but the role reassignment did not. The attribute change is
// not rolled back; callers retry just the role phase.
type PartialUpdateError struct {
	Email string
	Cause error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("attributes updated for %s but role reassignment failed: %v", e.Email, e.Cause)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Cause
}

// classify maps a directory-native error onto the gateway taxonomy. Directory
// policy messages (password rules, parameter complaints) are passed through;
// everything else gets a fixed message.
func classify(err error) *Error {
	var (
		usernameExists   *types.UsernameExistsException
		userNotFound     *types.UserNotFoundException
		invalidPassword  *types.InvalidPasswordException
		invalidParameter *types.InvalidParameterException
		notAuthorized    *types.NotAuthorizedException
		userNotConfirmed *types.UserNotConfirmedException
		resetRequired    *types.PasswordResetRequiredException
		tooManyRequests  *types.TooManyRequestsException
		limitExceeded    *types.LimitExceededException
		codeMismatch     *types.CodeMismatchException
		codeExpired      *types.ExpiredCodeException
		lambdaValidation *types.UserLambdaValidationException
	)

	switch {
	case errors.As(err, &usernameExists):
		return &Error{Kind: KindConflict, Message: "Username already exists", cause: err}
	case errors.As(err, &userNotFound):
		return &Error{Kind: KindNotFound, Message: "User not found", cause: err}
	case errors.As(err, &invalidPassword):
		return &Error{Kind: KindCredentialPolicy, Message: invalidPassword.ErrorMessage(), cause: err}
	case errors.As(err, &invalidParameter):
		return &Error{Kind: KindValidation, Message: invalidParameter.ErrorMessage(), cause: err}
	case errors.As(err, &notAuthorized):
		return &Error{Kind: KindUnauthorized, Message: "Not authorized", cause: err}
	case errors.As(err, &userNotConfirmed):
		return &Error{Kind: KindUnconfirmed, Message: "User account is not confirmed", cause: err}
	case errors.As(err, &resetRequired):
		return &Error{Kind: KindResetRequired, Message: "Password reset required", cause: err}
	case errors.As(err, &tooManyRequests), errors.As(err, &limitExceeded):
		return &Error{Kind: KindRateLimited, Message: "Too many requests. Please try again later.", cause: err}
	case errors.As(err, &codeMismatch):
		return &Error{Kind: KindCodeMismatch, Message: "Invalid verification code", cause: err}
	case errors.As(err, &codeExpired):
		return &Error{Kind: KindCodeExpired, Message: "Verification code has expired", cause: err}
	case errors.As(err, &lambdaValidation):
		return &Error{Kind: KindInternal, Message: "User validation failed", cause: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindInternal, Message: "Directory request failed", cause: err}
	}

	return &Error{Kind: KindInternal, Message: "Unexpected directory error", cause: err}
}

// AsError extracts the adapter's typed error, classifying on the fly if a raw
// error slipped through.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return classify(err)
}
