package models

// AuditLogEntry is one audit record, both as the queue message shape and as the
// item written to the log store.
type AuditLogEntry struct {
	LogID         string `json:"log_id,omitempty" dynamodbav:"log_id"`
	Datetime      string `json:"datetime" dynamodbav:"datetime"`
	CrudOperation string `json:"crud_operation" dynamodbav:"crud_operation"`
	AttributeName string `json:"attribute_name" dynamodbav:"attribute_name"`
	BeforeValue   string `json:"before_value" dynamodbav:"before_value"`
	AfterValue    string `json:"after_value" dynamodbav:"after_value"`
	AgentID       string `json:"agent_id" dynamodbav:"agent_id"`
	ClientID      string `json:"client_id" dynamodbav:"client_id"`
	Remarks       string `json:"remarks" dynamodbav:"remarks"`
}

// GetLogsResponse is the audit-log read API body.
type GetLogsResponse struct {
	Count            int               `json:"count"`
	Logs             []AuditLogEntry   `json:"logs"`
	LastEvaluatedKey map[string]string `json:"last_evaluated_key,omitempty"`
}
