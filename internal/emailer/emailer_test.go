package emailer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crmhub/crm-platform-services/internal/appconfig"
	"github.com/crmhub/crm-platform-services/models"
)

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) PresignPostObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PresignedPostRequest)
	return out, args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sesv2.SendEmailOutput)
	return out, args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Publish(ctx context.Context, v interface{}) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func testSender(presigner *mockPresigner, storage *mockStorage, ses *mockSES, audit *mockAudit) *Sender {
	sender := NewSender(presigner, storage, ses, audit, appconfig.EmailConfig{
		Bucket:             "crm-documents",
		Sender:             "no-reply@crmhub.example",
		TemplateName:       "document-verification",
		PresignExpirySec:   86400,
		SuccessRedirectURL: "https://crmhub.example/upload-complete",
	})
	sender.newID = func() string { return "fixed-id" }
	sender.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return sender
}

func verificationBody(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(models.VerificationRequest{
		ClientID:    "client-42",
		ClientEmail: "client@example.com",
		AgentID:     "agent-7",
		AgentEmail:  "agent@crmhub.example",
	})
	assert.NoError(t, err)
	return string(body)
}

func TestHandleMessageSendsEmail(t *testing.T) {
	presigner := new(mockPresigner)
	storage := new(mockStorage)
	ses := new(mockSES)
	audit := new(mockAudit)
	sender := testSender(presigner, storage, ses, audit)

	presigner.On("PresignPostObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "documents/client-42/fixed-id.pdf"
	})).Return(&s3.PresignedPostRequest{
		URL:    "https://crm-documents.s3.amazonaws.com/",
		Values: map[string]string{"key": "documents/client-42/fixed-id.pdf", "policy": "signed-policy"},
	}, nil)
	storage.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "upload-forms/client-42/fixed-id.html" &&
			aws.ToString(in.ContentType) == "text/html"
	})).Return(&s3.PutObjectOutput{}, nil)
	ses.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		return in.Destination.ToAddresses[0] == "client@example.com" &&
			aws.ToString(in.Content.Template.TemplateName) == "document-verification" &&
			strings.Contains(aws.ToString(in.Content.Template.TemplateData), "upload-forms/client-42/fixed-id.html")
	})).Return(&sesv2.SendEmailOutput{}, nil)
	audit.On("Publish", mock.Anything, mock.MatchedBy(func(v interface{}) bool {
		entry, ok := v.(models.AuditLogEntry)
		return ok && entry.CrudOperation == "Create" && entry.AgentID == "agent-7"
	})).Return(nil)

	err := sender.HandleMessage(context.Background(), verificationBody(t))

	assert.NoError(t, err)
	presigner.AssertExpectations(t)
	storage.AssertExpectations(t)
	ses.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestHandleMessageAuditFailureDoesNotFailSend(t *testing.T) {
	presigner := new(mockPresigner)
	storage := new(mockStorage)
	ses := new(mockSES)
	audit := new(mockAudit)
	sender := testSender(presigner, storage, ses, audit)

	presigner.On("PresignPostObject", mock.Anything, mock.Anything).
		Return(&s3.PresignedPostRequest{URL: "https://example/", Values: map[string]string{}}, nil)
	storage.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)
	ses.On("SendEmail", mock.Anything, mock.Anything).Return(&sesv2.SendEmailOutput{}, nil)
	audit.On("Publish", mock.Anything, mock.Anything).Return(errors.New("audit queue down"))

	err := sender.HandleMessage(context.Background(), verificationBody(t))

	assert.NoError(t, err)
}

func TestHandleMessageSendFailure(t *testing.T) {
	presigner := new(mockPresigner)
	storage := new(mockStorage)
	ses := new(mockSES)
	audit := new(mockAudit)
	sender := testSender(presigner, storage, ses, audit)

	presigner.On("PresignPostObject", mock.Anything, mock.Anything).
		Return(&s3.PresignedPostRequest{URL: "https://example/", Values: map[string]string{}}, nil)
	storage.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)
	ses.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("sender not verified"))

	err := sender.HandleMessage(context.Background(), verificationBody(t))

	assert.ErrorContains(t, err, "send verification email")
	audit.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestHandleMessageRejectsIncompleteRequest(t *testing.T) {
	presigner := new(mockPresigner)
	sender := testSender(presigner, new(mockStorage), new(mockSES), new(mockAudit))

	err := sender.HandleMessage(context.Background(), `{"clientId": "client-42"}`)

	assert.Error(t, err)
	presigner.AssertNotCalled(t, "PresignPostObject", mock.Anything, mock.Anything)
}

func TestBuildUploadFormEmbedsPolicyFields(t *testing.T) {
	form := buildUploadForm(&s3.PresignedPostRequest{
		URL: "https://crm-documents.s3.amazonaws.com/",
		Values: map[string]string{
			"key":    "documents/client-42/fixed-id.pdf",
			"policy": "signed-policy",
		},
	}, "https://crmhub.example/upload-complete")

	assert.Contains(t, form, `action="https://crm-documents.s3.amazonaws.com/"`)
	assert.Contains(t, form, `name="policy" value="signed-policy"`)
	assert.Contains(t, form, `name="success_action_redirect"`)
	assert.Contains(t, form, `accept="application/pdf"`)
}
