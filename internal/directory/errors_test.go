package directory

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"username exists", &types.UsernameExistsException{}, KindConflict, "Username already exists"},
		{"user not found", &types.UserNotFoundException{}, KindNotFound, "User not found"},
		{"not authorized", &types.NotAuthorizedException{}, KindUnauthorized, "Not authorized"},
		{"not confirmed", &types.UserNotConfirmedException{}, KindUnconfirmed, "User account is not confirmed"},
		{"reset required", &types.PasswordResetRequiredException{}, KindResetRequired, "Password reset required"},
		{"too many requests", &types.TooManyRequestsException{}, KindRateLimited, "Too many requests. Please try again later."},
		{"limit exceeded", &types.LimitExceededException{}, KindRateLimited, "Too many requests. Please try again later."},
		{"code mismatch", &types.CodeMismatchException{}, KindCodeMismatch, "Invalid verification code"},
		{"code expired", &types.ExpiredCodeException{}, KindCodeExpired, "Verification code has expired"},
		{"lambda validation", &types.UserLambdaValidationException{}, KindInternal, "User validation failed"},
		{"unknown error", errors.New("boom"), KindInternal, "Unexpected directory error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classify(tt.err)
			assert.Equal(t, tt.kind, classified.Kind)
			assert.Equal(t, tt.message, classified.Message)
		})
	}
}

func TestClassifyPassesThroughPolicyMessages(t *testing.T) {
	err := &types.InvalidPasswordException{
		Message: aws.String("Password did not conform with policy: Password must have symbol characters"),
	}

	classified := classify(err)

	assert.Equal(t, KindCredentialPolicy, classified.Kind)
	assert.Contains(t, classified.Message, "Password did not conform with policy")
}

func TestClassifyKeepsCause(t *testing.T) {
	cause := &types.UserNotFoundException{}

	classified := classify(cause)

	var unwrapped *types.UserNotFoundException
	assert.ErrorAs(t, classified, &unwrapped)
}

func TestAsErrorPassthrough(t *testing.T) {
	original := &Error{Kind: KindConflict, Message: "Username already exists"}

	assert.Same(t, original, AsError(original))
	assert.Equal(t, KindInternal, AsError(errors.New("raw")).Kind)
}
