package directory

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crmhub/crm-platform-services/models"
)

type mockCognitoAPI struct {
	mock.Mock
}

func (m *mockCognitoAPI) AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminCreateUserOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminGetUserOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminEnableUser(ctx context.Context, params *cip.AdminEnableUserInput, optFns ...func(*cip.Options)) (*cip.AdminEnableUserOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminEnableUserOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminDisableUser(ctx context.Context, params *cip.AdminDisableUserInput, optFns ...func(*cip.Options)) (*cip.AdminDisableUserOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminDisableUserOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminUpdateUserAttributes(ctx context.Context, params *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminUpdateUserAttributesOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminListGroupsForUser(ctx context.Context, params *cip.AdminListGroupsForUserInput, optFns ...func(*cip.Options)) (*cip.AdminListGroupsForUserOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminListGroupsForUserOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminAddUserToGroup(ctx context.Context, params *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminAddUserToGroupOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) AdminRemoveUserFromGroup(ctx context.Context, params *cip.AdminRemoveUserFromGroupInput, optFns ...func(*cip.Options)) (*cip.AdminRemoveUserFromGroupOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.AdminRemoveUserFromGroupOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.ListUsersOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.ForgotPasswordOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.ConfirmForgotPasswordOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.InitiateAuthOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.RespondToAuthChallengeOutput)
	return out, args.Error(1)
}

func (m *mockCognitoAPI) GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cip.GlobalSignOutOutput)
	return out, args.Error(1)
}

func userAttributes(email, firstName, lastName string) []types.AttributeType {
	return []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
		{Name: aws.String("given_name"), Value: aws.String(firstName)},
		{Name: aws.String("family_name"), Value: aws.String(lastName)},
	}
}

func groupsOutput(groups ...string) *cip.AdminListGroupsForUserOutput {
	out := &cip.AdminListGroupsForUserOutput{}
	for _, g := range groups {
		out.Groups = append(out.Groups, types.GroupType{GroupName: aws.String(g)})
	}
	return out
}

func TestCreateUser(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("AdminCreateUser", mock.Anything, mock.MatchedBy(func(in *cip.AdminCreateUserInput) bool {
		return aws.ToString(in.Username) == "jane@example.com" &&
			in.MessageAction == types.MessageActionTypeSuppress
	})).Return(&cip.AdminCreateUserOutput{
		User: &types.UserType{
			Attributes: userAttributes("jane@example.com", "Jane", "Doe"),
			Enabled:    true,
		},
	}, nil)
	api.On("AdminAddUserToGroup", mock.Anything, mock.MatchedBy(func(in *cip.AdminAddUserToGroupInput) bool {
		return aws.ToString(in.GroupName) == "admin"
	})).Return(&cip.AdminAddUserToGroupOutput{}, nil)
	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(groupsOutput("admin"), nil)

	user, err := dir.CreateUser(context.Background(), models.CreateUserRequest{
		Email:             "jane@example.com",
		FirstName:         "Jane",
		LastName:          "Doe",
		Role:              models.RoleAdmin,
		TemporaryPassword: "Temp-pass-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Doe", user.LastName)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.Enabled)
	api.AssertExpectations(t)
}

func TestCreateUserDuplicate(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("AdminCreateUser", mock.Anything, mock.Anything).
		Return(nil, &types.UsernameExistsException{})

	_, err := dir.CreateUser(context.Background(), models.CreateUserRequest{
		Email:             "jane@example.com",
		FirstName:         "Jane",
		LastName:          "Doe",
		Role:              models.RoleAgent,
		TemporaryPassword: "Temp-pass-1",
	})

	assert.Error(t, err)
	assert.Equal(t, KindConflict, AsError(err).Kind)
	api.AssertNotCalled(t, "AdminAddUserToGroup", mock.Anything, mock.Anything)
}

func TestListUsersPassesPaginationToken(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("ListUsers", mock.Anything, mock.MatchedBy(func(in *cip.ListUsersInput) bool {
		return aws.ToString(in.PaginationToken) == "opaque-token" && aws.ToInt32(in.Limit) == 25
	})).Return(&cip.ListUsersOutput{
		Users: []types.UserType{
			{Attributes: userAttributes("a@example.com", "A", "One"), Enabled: true},
			{Attributes: userAttributes("b@example.com", "B", "Two"), Enabled: false},
		},
		PaginationToken: aws.String("next-token"),
	}, nil)
	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(groupsOutput("agent"), nil)

	page, err := dir.ListUsers(context.Background(), 25, "opaque-token")

	assert.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, "next-token", page.PaginationToken)
	assert.False(t, page.Users[1].Enabled)
}

func TestUpdateUserRemovesOldGroupsBeforeAdding(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	role := models.RoleAdmin
	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(groupsOutput("agent"), nil).Once()
	api.On("AdminRemoveUserFromGroup", mock.Anything, mock.MatchedBy(func(in *cip.AdminRemoveUserFromGroupInput) bool {
		return aws.ToString(in.GroupName) == "agent"
	})).Return(&cip.AdminRemoveUserFromGroupOutput{}, nil)
	api.On("AdminAddUserToGroup", mock.Anything, mock.MatchedBy(func(in *cip.AdminAddUserToGroupInput) bool {
		return aws.ToString(in.GroupName) == "admin"
	})).Return(&cip.AdminAddUserToGroupOutput{}, nil)
	api.On("AdminGetUser", mock.Anything, mock.Anything).Return(&cip.AdminGetUserOutput{
		UserAttributes: userAttributes("jane@example.com", "Jane", "Doe"),
		Enabled:        true,
	}, nil)
	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(groupsOutput("admin"), nil)

	user, err := dir.UpdateUser(context.Background(), models.UpdateUserRequest{
		Email: "jane@example.com",
		Role:  &role,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	api.AssertNotCalled(t, "AdminUpdateUserAttributes", mock.Anything, mock.Anything)
	api.AssertExpectations(t)
}

func TestUpdateUserPartialFailure(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	firstName := "Janet"
	role := models.RoleAdmin
	api.On("AdminUpdateUserAttributes", mock.Anything, mock.Anything).
		Return(&cip.AdminUpdateUserAttributesOutput{}, nil)
	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(nil, errors.New("directory unavailable"))

	_, err := dir.UpdateUser(context.Background(), models.UpdateUserRequest{
		Email:     "jane@example.com",
		FirstName: &firstName,
		Role:      &role,
	})

	var partial *PartialUpdateError
	assert.ErrorAs(t, err, &partial)
	assert.Equal(t, "jane@example.com", partial.Email)
}

func TestLoginReturnsTokens(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthFlow == types.AuthFlowTypeUserPasswordAuth &&
			in.AuthParameters["USERNAME"] == "jane@example.com"
	})).Return(&cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken:  aws.String("access"),
			IdToken:      aws.String("id"),
			RefreshToken: aws.String("refresh"),
			ExpiresIn:    3600,
			TokenType:    aws.String("Bearer"),
		},
	}, nil)

	outcome, err := dir.Login(context.Background(), "jane@example.com", "Password-1")

	assert.NoError(t, err)
	assert.Nil(t, outcome.Challenge)
	assert.Equal(t, "access", outcome.Tokens.AccessToken)
	assert.Equal(t, int32(3600), outcome.Tokens.ExpiresIn)
}

func TestLoginSurfacesChallenge(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("InitiateAuth", mock.Anything, mock.Anything).Return(&cip.InitiateAuthOutput{
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
		Session:       aws.String("session-blob"),
	}, nil)

	outcome, err := dir.Login(context.Background(), "jane@example.com", "Temp-pass-1")

	assert.NoError(t, err)
	assert.Nil(t, outcome.Tokens)
	assert.Equal(t, "NEW_PASSWORD_REQUIRED", outcome.Challenge.Name)
	assert.Equal(t, "session-blob", outcome.Challenge.Session)
}

func TestLoginIncludesSecretHash(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "shhh")

	mac := hmac.New(sha256.New, []byte("shhh"))
	mac.Write([]byte("jane@example.com" + "client-id"))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	api.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthParameters["SECRET_HASH"] == expected
	})).Return(&cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{},
	}, nil)

	_, err := dir.Login(context.Background(), "jane@example.com", "Password-1")

	assert.NoError(t, err)
	api.AssertExpectations(t)
}

func TestRefreshUsesRefreshFlow(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthFlow == types.AuthFlowTypeRefreshTokenAuth &&
			in.AuthParameters["REFRESH_TOKEN"] == "refresh-blob"
	})).Return(&cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken: aws.String("new-access"),
			IdToken:     aws.String("new-id"),
			ExpiresIn:   3600,
		},
	}, nil)

	tokens, err := dir.Refresh(context.Background(), "refresh-blob")

	assert.NoError(t, err)
	assert.Equal(t, "new-access", tokens.AccessToken)
}

func TestForgotPasswordMapsDelivery(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("ForgotPassword", mock.Anything, mock.Anything).Return(&cip.ForgotPasswordOutput{
		CodeDeliveryDetails: &types.CodeDeliveryDetailsType{
			Destination:    aws.String("j***@e***.com"),
			DeliveryMedium: types.DeliveryMediumTypeEmail,
			AttributeName:  aws.String("email"),
		},
	}, nil)

	delivery, err := dir.ForgotPassword(context.Background(), "jane@example.com")

	assert.NoError(t, err)
	assert.Equal(t, "j***@e***.com", delivery.Destination)
	assert.Equal(t, "EMAIL", delivery.Medium)
}

func TestRoleForMultipleGroupsHonorsFirst(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(groupsOutput("admin", "agent"), nil)

	role := dir.roleFor(context.Background(), "jane@example.com")

	assert.Equal(t, models.RoleAdmin, role)
}

func TestRoleForNoGroupsDefaultsToAgent(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("AdminListGroupsForUser", mock.Anything, mock.Anything).
		Return(groupsOutput(), nil)

	role := dir.roleFor(context.Background(), "jane@example.com")

	assert.Equal(t, models.RoleAgent, role)
}

func TestLogout(t *testing.T) {
	api := new(mockCognitoAPI)
	dir := NewCognitoDirectory(api, "pool-id", "client-id", "")

	api.On("GlobalSignOut", mock.Anything, mock.MatchedBy(func(in *cip.GlobalSignOutInput) bool {
		return aws.ToString(in.AccessToken) == "access-blob"
	})).Return(&cip.GlobalSignOutOutput{}, nil)

	assert.NoError(t, dir.Logout(context.Background(), "access-blob"))
}
