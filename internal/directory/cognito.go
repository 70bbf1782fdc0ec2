package directory

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/models"
)

const (
	attrEmail         = "email"
	attrEmailVerified = "email_verified"
	attrGivenName     = "given_name"
	attrFamilyName    = "family_name"
)

// cognitoAPI is the slice of the user-pool API this adapter uses.
type cognitoAPI interface {
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	AdminEnableUser(ctx context.Context, params *cip.AdminEnableUserInput, optFns ...func(*cip.Options)) (*cip.AdminEnableUserOutput, error)
	AdminDisableUser(ctx context.Context, params *cip.AdminDisableUserInput, optFns ...func(*cip.Options)) (*cip.AdminDisableUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cip.AdminListGroupsForUserInput, optFns ...func(*cip.Options)) (*cip.AdminListGroupsForUserOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroup(ctx context.Context, params *cip.AdminRemoveUserFromGroupInput, optFns ...func(*cip.Options)) (*cip.AdminRemoveUserFromGroupOutput, error)
	ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// CognitoDirectory is the user-pool backed Directory implementation.
type CognitoDirectory struct {
	api          cognitoAPI
	userPoolID   string
	clientID     string
	clientSecret string
}

// NewCognitoDirectory creates a new directory adapter. clientSecret may be
// empty when the app client has no secret.
func NewCognitoDirectory(api cognitoAPI, userPoolID, clientID, clientSecret string) *CognitoDirectory {
	return &CognitoDirectory{
		api:          api,
		userPoolID:   userPoolID,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// CreateUser creates the user with a temporary password and assigns its role
// group. The welcome email is suppressed; onboarding mail is sent elsewhere.
func (d *CognitoDirectory) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	logger := zerolog.Ctx(ctx)

	userAttributes := []types.AttributeType{
		{Name: aws.String(attrEmail), Value: aws.String(req.Email)},
		{Name: aws.String(attrEmailVerified), Value: aws.String("true")},
		{Name: aws.String(attrGivenName), Value: aws.String(req.FirstName)},
		{Name: aws.String(attrFamilyName), Value: aws.String(req.LastName)},
	}

	out, err := d.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId:             aws.String(d.userPoolID),
		Username:               aws.String(req.Email),
		UserAttributes:         userAttributes,
		TemporaryPassword:      aws.String(req.TemporaryPassword),
		MessageAction:          types.MessageActionTypeSuppress,
		DesiredDeliveryMediums: []types.DeliveryMediumType{types.DeliveryMediumTypeEmail},
	})
	if err != nil {
		return models.User{}, classify(err)
	}

	if err := d.addToGroup(ctx, req.Email, string(req.Role)); err != nil {
		return models.User{}, err
	}

	logger.Info().Str("email", req.Email).Str("role", string(req.Role)).
		Msg("user created and added to role group")

	user := d.mapUser(ctx, out.User.Attributes, out.User.Enabled)
	return user, nil
}

// ListUsers returns one page of users. The pagination token is opaque and
// passed through untouched.
func (d *CognitoDirectory) ListUsers(ctx context.Context, limit int32, paginationToken string) (UserPage, error) {
	input := &cip.ListUsersInput{
		UserPoolId: aws.String(d.userPoolID),
		Limit:      aws.Int32(limit),
	}
	if paginationToken != "" {
		input.PaginationToken = aws.String(paginationToken)
	}

	out, err := d.api.ListUsers(ctx, input)
	if err != nil {
		return UserPage{}, classify(err)
	}

	page := UserPage{Users: make([]models.User, 0, len(out.Users))}
	for _, u := range out.Users {
		page.Users = append(page.Users, d.mapUser(ctx, u.Attributes, u.Enabled))
	}
	if out.PaginationToken != nil {
		page.PaginationToken = *out.PaginationToken
	}
	return page, nil
}

func (d *CognitoDirectory) EnableUser(ctx context.Context, email string) error {
	_, err := d.api.AdminEnableUser(ctx, &cip.AdminEnableUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (d *CognitoDirectory) DisableUser(ctx context.Context, email string) error {
	_, err := d.api.AdminDisableUser(ctx, &cip.AdminDisableUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// UpdateUser performs the two-phase update: attribute update first, then role
// reassignment via group membership. The two phases are not transactional; a
// role failure after a successful attribute update surfaces as
// *PartialUpdateError and the attribute change stays in place.
func (d *CognitoDirectory) UpdateUser(ctx context.Context, req models.UpdateUserRequest) (models.User, error) {
	logger := zerolog.Ctx(ctx)

	var userAttributes []types.AttributeType
	if req.FirstName != nil {
		userAttributes = append(userAttributes, types.AttributeType{
			Name: aws.String(attrGivenName), Value: aws.String(*req.FirstName),
		})
	}
	if req.LastName != nil {
		userAttributes = append(userAttributes, types.AttributeType{
			Name: aws.String(attrFamilyName), Value: aws.String(*req.LastName),
		})
	}

	attributesUpdated := false
	if len(userAttributes) > 0 {
		_, err := d.api.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
			UserPoolId:     aws.String(d.userPoolID),
			Username:       aws.String(req.Email),
			UserAttributes: userAttributes,
		})
		if err != nil {
			return models.User{}, classify(err)
		}
		attributesUpdated = true
	}

	if req.Role != nil {
		if err := d.setRole(ctx, req.Email, string(*req.Role)); err != nil {
			if attributesUpdated {
				return models.User{}, &PartialUpdateError{Email: req.Email, Cause: err}
			}
			return models.User{}, err
		}
	}

	out, err := d.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(req.Email),
	})
	if err != nil {
		return models.User{}, classify(err)
	}

	logger.Info().Str("email", req.Email).Msg("user attributes updated")
	return d.mapUser(ctx, out.UserAttributes, out.Enabled), nil
}

func (d *CognitoDirectory) ForgotPassword(ctx context.Context, email string) (CodeDelivery, error) {
	input := &cip.ForgotPasswordInput{
		ClientId: aws.String(d.clientID),
		Username: aws.String(email),
	}
	if hash := d.secretHash(email); hash != "" {
		input.SecretHash = aws.String(hash)
	}

	out, err := d.api.ForgotPassword(ctx, input)
	if err != nil {
		return CodeDelivery{}, classify(err)
	}

	delivery := CodeDelivery{}
	if cd := out.CodeDeliveryDetails; cd != nil {
		if cd.Destination != nil {
			delivery.Destination = *cd.Destination
		}
		delivery.Medium = string(cd.DeliveryMedium)
		if cd.AttributeName != nil {
			delivery.Attribute = *cd.AttributeName
		}
	}
	return delivery, nil
}

func (d *CognitoDirectory) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	input := &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(d.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	}
	if hash := d.secretHash(email); hash != "" {
		input.SecretHash = aws.String(hash)
	}

	if _, err := d.api.ConfirmForgotPassword(ctx, input); err != nil {
		return classify(err)
	}
	return nil
}

// Login authenticates with the USER_PASSWORD_AUTH flow. A challenge demanded
// by the directory is surfaced to the caller instead of tokens.
func (d *CognitoDirectory) Login(ctx context.Context, email, password string) (AuthOutcome, error) {
	authParams := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if hash := d.secretHash(email); hash != "" {
		authParams["SECRET_HASH"] = hash
	}

	out, err := d.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId:       aws.String(d.clientID),
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: authParams,
	})
	if err != nil {
		return AuthOutcome{}, classify(err)
	}

	if out.ChallengeName != "" {
		zerolog.Ctx(ctx).Warn().Str("email", email).
			Str("challenge", string(out.ChallengeName)).
			Msg("authentication challenge required")
		return AuthOutcome{Challenge: &Challenge{
			Name:       string(out.ChallengeName),
			Session:    aws.ToString(out.Session),
			Parameters: out.ChallengeParameters,
		}}, nil
	}

	return AuthOutcome{Tokens: tokenSetFromResult(out.AuthenticationResult)}, nil
}

// RespondToChallenge resolves the NEW_PASSWORD_REQUIRED challenge. If the
// directory chains another challenge it is returned for the caller to reject;
// this adapter does not chain challenges.
func (d *CognitoDirectory) RespondToChallenge(ctx context.Context, email, session, newPassword string) (AuthOutcome, error) {
	responses := map[string]string{
		"USERNAME":     email,
		"NEW_PASSWORD": newPassword,
	}
	if hash := d.secretHash(email); hash != "" {
		responses["SECRET_HASH"] = hash
	}

	out, err := d.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ClientId:           aws.String(d.clientID),
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		Session:            aws.String(session),
		ChallengeResponses: responses,
	})
	if err != nil {
		return AuthOutcome{}, classify(err)
	}

	if out.ChallengeName != "" {
		return AuthOutcome{Challenge: &Challenge{
			Name:       string(out.ChallengeName),
			Session:    aws.ToString(out.Session),
			Parameters: out.ChallengeParameters,
		}}, nil
	}

	return AuthOutcome{Tokens: tokenSetFromResult(out.AuthenticationResult)}, nil
}

func (d *CognitoDirectory) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	out, err := d.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId: aws.String(d.clientID),
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return TokenSet{}, classify(err)
	}
	return *tokenSetFromResult(out.AuthenticationResult), nil
}

// Logout revokes every token issued to the user of the given access token.
func (d *CognitoDirectory) Logout(ctx context.Context, accessToken string) error {
	_, err := d.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// setRole removes the user from every current role group before adding the new
// one, so a user never accumulates role groups through updates.
func (d *CognitoDirectory) setRole(ctx context.Context, email, role string) error {
	logger := zerolog.Ctx(ctx)

	out, err := d.api.AdminListGroupsForUser(ctx, &cip.AdminListGroupsForUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return classify(err)
	}

	for _, group := range out.Groups {
		_, err := d.api.AdminRemoveUserFromGroup(ctx, &cip.AdminRemoveUserFromGroupInput{
			UserPoolId: aws.String(d.userPoolID),
			Username:   aws.String(email),
			GroupName:  group.GroupName,
		})
		if err != nil {
			return classify(err)
		}
		logger.Info().Str("email", email).Str("group", aws.ToString(group.GroupName)).
			Msg("removed user from role group")
	}

	return d.addToGroup(ctx, email, role)
}

func (d *CognitoDirectory) addToGroup(ctx context.Context, email, group string) error {
	_, err := d.api.AdminAddUserToGroup(ctx, &cip.AdminAddUserToGroupInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(email),
		GroupName:  aws.String(group),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// roleFor re-queries group membership as the source of role truth. Zero groups
// fails open to agent; more than one group is a data-integrity warning and the
// first returned entry is honored.
func (d *CognitoDirectory) roleFor(ctx context.Context, email string) models.Role {
	logger := zerolog.Ctx(ctx)

	out, err := d.api.AdminListGroupsForUser(ctx, &cip.AdminListGroupsForUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		logger.Error().Err(err).Str("email", email).Msg("failed to fetch user groups, defaulting to agent")
		return models.RoleAgent
	}

	if len(out.Groups) == 0 {
		logger.Warn().Str("email", email).Msg("user has no role groups, defaulting to agent")
		return models.RoleAgent
	}

	if len(out.Groups) > 1 {
		logger.Warn().Str("email", email).Int("group_count", len(out.Groups)).
			Msg("data integrity: user belongs to more than one role group, honoring first")
	}

	return models.Role(aws.ToString(out.Groups[0].GroupName))
}

// mapUser shapes a directory user record into the external model. The role is
// always derived from group membership, never from the attribute blob.
func (d *CognitoDirectory) mapUser(ctx context.Context, attrs []types.AttributeType, enabled bool) models.User {
	user := models.User{Enabled: enabled}
	for _, attr := range attrs {
		switch aws.ToString(attr.Name) {
		case attrEmail:
			user.Email = aws.ToString(attr.Value)
		case attrGivenName:
			user.FirstName = aws.ToString(attr.Value)
		case attrFamilyName:
			user.LastName = aws.ToString(attr.Value)
		}
	}
	user.Role = d.roleFor(ctx, user.Email)
	return user
}

// secretHash computes the HMAC the directory expects when the app client has a
// secret. Returns "" when no secret is configured.
func (d *CognitoDirectory) secretHash(username string) string {
	if d.clientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(d.clientSecret))
	fmt.Fprintf(mac, "%s%s", username, d.clientID)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func tokenSetFromResult(result *types.AuthenticationResultType) *TokenSet {
	tokens := &TokenSet{TokenType: "Bearer"}
	if result == nil {
		return tokens
	}
	tokens.AccessToken = aws.ToString(result.AccessToken)
	tokens.IDToken = aws.ToString(result.IdToken)
	tokens.RefreshToken = aws.ToString(result.RefreshToken)
	tokens.ExpiresIn = result.ExpiresIn
	if result.TokenType != nil {
		tokens.TokenType = *result.TokenType
	}
	return tokens
}
