package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crmhub/crm-platform-services/models"
)

func TestGetAuditLogsService(t *testing.T) {
	logs := new(MockLogStore)
	svc := newTestService(new(MockDirectory), new(MockAuditPublisher), logs)

	logs.On("Get", mock.Anything, "agent-7", 50, map[string]string(nil)).
		Return(models.GetLogsResponse{
			Count: 1,
			Logs: []models.AuditLogEntry{{
				LogID: "log-1", AgentID: "agent-7", CrudOperation: "Update",
			}},
			LastEvaluatedKey: map[string]string{"log_id": "log-1"},
		}, nil)

	w := httptest.NewRecorder()
	svc.GetAuditLogsService(w, newAuthedRequest("GET", "/logs?agent_id=agent-7&limit=50", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.GetLogsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "log-1", resp.LastEvaluatedKey["log_id"])
}

func TestGetAuditLogsServicePassesStartKey(t *testing.T) {
	logs := new(MockLogStore)
	svc := newTestService(new(MockDirectory), new(MockAuditPublisher), logs)

	logs.On("Get", mock.Anything, "", 0, map[string]string{"log_id": "log-9"}).
		Return(models.GetLogsResponse{}, nil)

	w := httptest.NewRecorder()
	svc.GetAuditLogsService(w, newAuthedRequest("GET", `/logs?start_key={"log_id":"log-9"}`, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	logs.AssertExpectations(t)
}

func TestGetAuditLogsServiceInvalidParams(t *testing.T) {
	for _, target := range []string{"/logs?limit=-1", "/logs?limit=abc", "/logs?start_key=not-json"} {
		logs := new(MockLogStore)
		svc := newTestService(new(MockDirectory), new(MockAuditPublisher), logs)

		w := httptest.NewRecorder()
		svc.GetAuditLogsService(w, newAuthedRequest("GET", target, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		logs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}
