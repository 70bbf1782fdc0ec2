package services

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// GetAuditLogsService reads audit records, optionally filtered by agent and
// paginated with the start_key returned by the previous page.
func (s *Service) GetAuditLogsService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	query := r.URL.Query()
	agentID := query.Get("agent_id")

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var startKey map[string]string
	if raw := query.Get("start_key"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &startKey); err != nil {
			WriteError(w, http.StatusBadRequest, "start_key must be the last_evaluated_key of a previous page")
			return
		}
	}

	resp, err := s.Logs.Get(r.Context(), agentID, limit, startKey)
	if err != nil {
		logger.Error().Err(err).Str("agent_id", agentID).Msg("failed to read audit logs")
		WriteError(w, http.StatusInternalServerError, "Failed to read audit logs")
		return
	}

	WriteResponse(w, http.StatusOK, resp)
}
