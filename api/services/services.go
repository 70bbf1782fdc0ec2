package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/api/middleware"
	"github.com/crmhub/crm-platform-services/internal/appconfig"
	"github.com/crmhub/crm-platform-services/internal/authn"
	"github.com/crmhub/crm-platform-services/internal/directory"
	"github.com/crmhub/crm-platform-services/models"
)

// AuditPublisher sends audit records to the audit queue.
type AuditPublisher interface {
	Publish(ctx context.Context, v interface{}) error
}

// LogStore reads audit records back for the logs API.
type LogStore interface {
	Get(ctx context.Context, agentID string, limit int, startKey map[string]string) (models.GetLogsResponse, error)
}

// Service holds the dependencies the HTTP services need. Everything is passed
// in explicitly; there is no package-level state.
type Service struct {
	Config    *appconfig.Config
	Directory directory.Directory
	Audit     AuditPublisher
	Logs      LogStore
}

// recordAudit publishes an audit record for a completed mutation. The agent is
// taken from the request claims. Audit failures are logged and swallowed; the
// mutation already happened.
func (s *Service) recordAudit(ctx context.Context, operation, attribute, before, after, clientID string) {
	if s.Audit == nil {
		return
	}

	agentID := "system"
	if claims, ok := ctx.Value(middleware.ClaimsKey).(authn.Claims); ok && claims.Username != "" {
		agentID = claims.Username
	}

	entry := models.AuditLogEntry{
		Datetime:      time.Now().UTC().Format(time.RFC3339),
		CrudOperation: operation,
		AttributeName: attribute,
		BeforeValue:   before,
		AfterValue:    after,
		AgentID:       agentID,
		ClientID:      clientID,
	}
	if err := s.Audit.Publish(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("operation", operation).
			Str("attribute", attribute).Msg("failed to publish audit record")
	}
}
