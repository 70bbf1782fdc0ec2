package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/models"
)

const (
	agentIndexName = "agent_id-index"
	defaultLimit   = 100
	maxLimit       = 1000
)

var validOperations = map[string]bool{
	"Create": true,
	"Read":   true,
	"Update": true,
	"Delete": true,
}

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store writes and reads audit records in the key-value log table.
type Store struct {
	db        dynamoAPI
	tableName string
	newID     func() string
	now       func() time.Time
}

func NewStore(db dynamoAPI, tableName string) *Store {
	return &Store{
		db:        db,
		tableName: tableName,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Put validates and writes one audit record, assigning it a fresh log ID. The
// stored entry is returned so callers can report the assigned ID.
func (s *Store) Put(ctx context.Context, entry models.AuditLogEntry) (models.AuditLogEntry, error) {
	if !validOperations[entry.CrudOperation] {
		return models.AuditLogEntry{}, fmt.Errorf("invalid crud_operation %q", entry.CrudOperation)
	}
	if entry.AgentID == "" {
		return models.AuditLogEntry{}, fmt.Errorf("audit record missing agent_id")
	}

	entry.LogID = s.newID()
	if entry.Datetime == "" {
		entry.Datetime = s.now().UTC().Format(time.RFC3339)
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return models.AuditLogEntry{}, fmt.Errorf("marshal audit record: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return models.AuditLogEntry{}, fmt.Errorf("write audit record: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("log_id", entry.LogID).Str("agent_id", entry.AgentID).
		Str("operation", entry.CrudOperation).Msg("audit record written")
	return entry, nil
}

// Get reads audit records, newest first when filtered by agent. With an agent
// ID the agent index is queried; without one the whole table is scanned.
func (s *Store) Get(ctx context.Context, agentID string, limit int, startKey map[string]string) (models.GetLogsResponse, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var (
		items   []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
		err     error
	)
	if agentID != "" {
		items, lastKey, err = s.queryByAgent(ctx, agentID, limit, startKey)
	} else {
		items, lastKey, err = s.scanAll(ctx, limit, startKey)
	}
	if err != nil {
		return models.GetLogsResponse{}, err
	}

	logs := make([]models.AuditLogEntry, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &logs); err != nil {
		return models.GetLogsResponse{}, fmt.Errorf("unmarshal audit records: %w", err)
	}

	return models.GetLogsResponse{
		Count:            len(logs),
		Logs:             logs,
		LastEvaluatedKey: exportKey(lastKey),
	}, nil
}

func (s *Store) queryByAgent(ctx context.Context, agentID string, limit int, startKey map[string]string) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	out, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(agentIndexName),
		KeyConditionExpression: aws.String("agent_id = :agent_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":agent_id": &types.AttributeValueMemberS{Value: agentID},
		},
		ScanIndexForward:  aws.Bool(false),
		Limit:             aws.Int32(int32(limit)),
		ExclusiveStartKey: importKey(startKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query audit records for agent %s: %w", agentID, err)
	}
	return out.Items, out.LastEvaluatedKey, nil
}

func (s *Store) scanAll(ctx context.Context, limit int, startKey map[string]string) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
		TableName:         aws.String(s.tableName),
		Limit:             aws.Int32(int32(limit)),
		ExclusiveStartKey: importKey(startKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan audit records: %w", err)
	}
	return out.Items, out.LastEvaluatedKey, nil
}

// importKey rebuilds a pagination key from its string form. All key attributes
// in the log table are strings.
func importKey(key map[string]string) map[string]types.AttributeValue {
	if len(key) == 0 {
		return nil
	}
	converted := make(map[string]types.AttributeValue, len(key))
	for name, value := range key {
		converted[name] = &types.AttributeValueMemberS{Value: value}
	}
	return converted
}

func exportKey(key map[string]types.AttributeValue) map[string]string {
	if len(key) == 0 {
		return nil
	}
	exported := make(map[string]string, len(key))
	for name, value := range key {
		if s, ok := value.(*types.AttributeValueMemberS); ok {
			exported[name] = s.Value
		}
	}
	return exported
}
