package emailer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/internal/appconfig"
	"github.com/crmhub/crm-platform-services/models"
)

const (
	minUploadBytes = 1
	maxUploadBytes = 10 * 1024 * 1024
)

type postPresigner interface {
	PresignPostObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type sesSendAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type auditPublisher interface {
	Publish(ctx context.Context, v interface{}) error
}

// Sender handles one verification request end to end: presign the upload,
// store the upload form and email the client a link to it.
type Sender struct {
	presigner postPresigner
	storage   s3PutAPI
	ses       sesSendAPI
	audit     auditPublisher
	cfg       appconfig.EmailConfig
	newID     func() string
	now       func() time.Time
}

func NewSender(presigner postPresigner, storage s3PutAPI, ses sesSendAPI, audit auditPublisher, cfg appconfig.EmailConfig) *Sender {
	return &Sender{
		presigner: presigner,
		storage:   storage,
		ses:       ses,
		audit:     audit,
		cfg:       cfg,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// HandleMessage processes one verification request from the email queue.
func (s *Sender) HandleMessage(ctx context.Context, body string) error {
	logger := zerolog.Ctx(ctx)

	var req models.VerificationRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return fmt.Errorf("decode verification request: %w", err)
	}
	if req.ClientID == "" || req.ClientEmail == "" {
		return fmt.Errorf("verification request missing client id or email")
	}

	uploadID := s.newID()
	objectKey := fmt.Sprintf("documents/%s/%s.pdf", req.ClientID, uploadID)
	expiry := time.Duration(s.cfg.PresignExpirySec) * time.Second

	post, err := s.presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = expiry
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", minUploadBytes, maxUploadBytes},
			map[string]string{"Content-Type": "application/pdf"},
			map[string]string{"success_action_redirect": s.cfg.SuccessRedirectURL},
		}
	})
	if err != nil {
		return fmt.Errorf("presign upload for client %s: %w", req.ClientID, err)
	}

	form := buildUploadForm(post, s.cfg.SuccessRedirectURL)
	formKey := fmt.Sprintf("upload-forms/%s/%s.html", req.ClientID, uploadID)
	_, err = s.storage.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(formKey),
		Body:        strings.NewReader(form),
		ContentType: aws.String("text/html"),
	})
	if err != nil {
		return fmt.Errorf("store upload form for client %s: %w", req.ClientID, err)
	}

	formURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, formKey)
	if err := s.sendEmail(ctx, req, formURL, expiry); err != nil {
		return err
	}

	logger.Info().Str("client_id", req.ClientID).Str("form_key", formKey).
		Msg("verification email sent")

	// Audit failures must never fail a sent email; the mail is already out.
	s.writeAudit(ctx, req, formURL)
	return nil
}

func (s *Sender) sendEmail(ctx context.Context, req models.VerificationRequest, formURL string, expiry time.Duration) error {
	templateData, err := json.Marshal(map[string]string{
		"uploadUrl":       formURL,
		"expirationHours": fmt.Sprintf("%d", int(expiry.Hours())),
		"year":            fmt.Sprintf("%d", s.now().Year()),
		"clientId":        req.ClientID,
	})
	if err != nil {
		return fmt.Errorf("marshal template data: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.cfg.Sender),
		Destination: &sestypes.Destination{
			ToAddresses: []string{req.ClientEmail},
		},
		Content: &sestypes.EmailContent{
			Template: &sestypes.Template{
				TemplateName: aws.String(s.cfg.TemplateName),
				TemplateData: aws.String(string(templateData)),
			},
		},
	}
	if s.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.cfg.ConfigurationSet)
	}

	if _, err := s.ses.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send verification email to client %s: %w", req.ClientID, err)
	}
	return nil
}

func (s *Sender) writeAudit(ctx context.Context, req models.VerificationRequest, formURL string) {
	entry := models.AuditLogEntry{
		Datetime:      s.now().UTC().Format(time.RFC3339),
		CrudOperation: "Create",
		AttributeName: "verification_email",
		AfterValue:    formURL,
		AgentID:       req.AgentID,
		ClientID:      req.ClientID,
		Remarks:       fmt.Sprintf("verification email sent to %s", req.ClientEmail),
	}
	if err := s.audit.Publish(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("client_id", req.ClientID).
			Msg("failed to publish audit record for sent email")
	}
}

// buildUploadForm renders the static upload page the client opens from the
// email. The hidden inputs carry the signed policy fields and must be posted
// unchanged.
func buildUploadForm(post *s3.PresignedPostRequest, redirectURL string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Document Upload</title></head>\n<body>\n")
	b.WriteString("<h1>Upload your verification document</h1>\n")
	b.WriteString("<p>Only PDF files up to 10 MB are accepted.</p>\n")
	fmt.Fprintf(&b, "<form action=%q method=\"post\" enctype=\"multipart/form-data\">\n", post.URL)
	for name, value := range post.Values {
		fmt.Fprintf(&b, "  <input type=\"hidden\" name=%q value=%q>\n", name, value)
	}
	fmt.Fprintf(&b, "  <input type=\"hidden\" name=\"Content-Type\" value=\"application/pdf\">\n")
	fmt.Fprintf(&b, "  <input type=\"hidden\" name=\"success_action_redirect\" value=%q>\n", redirectURL)
	b.WriteString("  <input type=\"file\" name=\"file\" accept=\"application/pdf\" required>\n")
	b.WriteString("  <button type=\"submit\">Upload</button>\n")
	b.WriteString("</form>\n</body>\n</html>\n")
	return b.String()
}
