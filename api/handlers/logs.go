package handlers

import (
	"net/http"

	"github.com/crmhub/crm-platform-services/api/services"
)

// GetAuditLogs handles audit log read requests.
func GetAuditLogs(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.GetAuditLogsService(w, r)
	}
}
