package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/crmhub/crm-platform-services/internal/directory"
	"github.com/crmhub/crm-platform-services/models"
)

// MockDirectory is a testify mock of the identity directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockDirectory) ListUsers(ctx context.Context, limit int32, paginationToken string) (directory.UserPage, error) {
	args := m.Called(ctx, limit, paginationToken)
	return args.Get(0).(directory.UserPage), args.Error(1)
}

func (m *MockDirectory) EnableUser(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockDirectory) DisableUser(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockDirectory) UpdateUser(ctx context.Context, req models.UpdateUserRequest) (models.User, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockDirectory) ForgotPassword(ctx context.Context, email string) (directory.CodeDelivery, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(directory.CodeDelivery), args.Error(1)
}

func (m *MockDirectory) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	args := m.Called(ctx, email, code, newPassword)
	return args.Error(0)
}

func (m *MockDirectory) Login(ctx context.Context, email, password string) (directory.AuthOutcome, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(directory.AuthOutcome), args.Error(1)
}

func (m *MockDirectory) RespondToChallenge(ctx context.Context, email, session, newPassword string) (directory.AuthOutcome, error) {
	args := m.Called(ctx, email, session, newPassword)
	return args.Get(0).(directory.AuthOutcome), args.Error(1)
}

func (m *MockDirectory) Refresh(ctx context.Context, refreshToken string) (directory.TokenSet, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(directory.TokenSet), args.Error(1)
}

func (m *MockDirectory) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

// MockAuditPublisher is a testify mock of the audit queue publisher.
type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) Publish(ctx context.Context, v interface{}) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

// MockLogStore is a testify mock of the audit log reader.
type MockLogStore struct {
	mock.Mock
}

func (m *MockLogStore) Get(ctx context.Context, agentID string, limit int, startKey map[string]string) (models.GetLogsResponse, error) {
	args := m.Called(ctx, agentID, limit, startKey)
	return args.Get(0).(models.GetLogsResponse), args.Error(1)
}
