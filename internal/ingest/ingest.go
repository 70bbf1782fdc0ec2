package ingest

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/models"
)

type textractStartAPI interface {
	StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

type snsPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Processor turns object-storage upload notifications into OCR analysis jobs.
type Processor struct {
	textract textractStartAPI
	sns      snsPublishAPI
	topicARN string
	roleARN  string
	now      func() time.Time
}

func NewProcessor(textractClient textractStartAPI, snsClient snsPublishAPI, topicARN, roleARN string) *Processor {
	return &Processor{
		textract: textractClient,
		sns:      snsClient,
		topicARN: topicARN,
		roleARN:  roleARN,
		now:      time.Now,
	}
}

// HandleEvent processes one notification body. Non-creation events are
// skipped; records are processed independently and the first failure aborts so
// the whole message is redelivered.
func (p *Processor) HandleEvent(ctx context.Context, body string) error {
	var event models.S3EventNotification
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return fmt.Errorf("decode storage event: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	for _, record := range event.Records {
		if !strings.HasPrefix(record.EventName, "ObjectCreated") {
			logger.Debug().Str("event_name", record.EventName).Msg("skipping non-creation event")
			continue
		}
		if err := p.processRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processRecord(ctx context.Context, record models.S3EventRecord) error {
	logger := zerolog.Ctx(ctx)

	// Object keys arrive URL-encoded in storage notifications.
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return fmt.Errorf("decode object key %q: %w", record.S3.Object.Key, err)
	}
	bucket := record.S3.Bucket.Name

	// A key outside documents/{clientID}/... cannot be attributed to a
	// client; redelivery would not change that, so skip it.
	clientID, err := extractClientID(key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("skipping unattributable object")
		return nil
	}

	token := requestToken(clientID, p.now())
	jobTag := fmt.Sprintf("%s|%s|%s", clientID, bucket, key)

	out, err := p.textract.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes:       []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms},
		ClientRequestToken: aws.String(token),
		JobTag:             aws.String(jobTag),
		NotificationChannel: &types.NotificationChannel{
			SNSTopicArn: aws.String(p.topicARN),
			RoleArn:     aws.String(p.roleARN),
		},
	})
	if err != nil {
		logger.Warn().Err(err).Str("key", key).
			Msg("async analysis rejected, falling back to synchronous analysis")
		return p.analyzeSync(ctx, bucket, key, token, jobTag)
	}

	logger.Info().Str("job_id", aws.ToString(out.JobId)).Str("client_id", clientID).
		Str("key", key).Msg("document analysis started")
	return nil
}

// analyzeSync runs the analysis inline and publishes a completion notification
// with the blocks embedded, so the results worker handles both paths the same
// way.
func (p *Processor) analyzeSync(ctx context.Context, bucket, key, token, jobTag string) error {
	out, err := p.textract.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms},
	})
	if err != nil {
		return fmt.Errorf("synchronous analysis of %s/%s: %w", bucket, key, err)
	}

	completion := models.AnalysisCompletion{
		JobID:  "sync-" + token,
		Status: "SUCCEEDED",
		API:    "AnalyzeDocument",
		JobTag: jobTag,
		Blocks: ConvertBlocks(out.Blocks),
	}
	payload, err := json.Marshal(completion)
	if err != nil {
		return fmt.Errorf("marshal completion notification: %w", err)
	}

	_, err = p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("publish completion notification: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("job_id", completion.JobID).Str("key", key).
		Msg("synchronous analysis completed and published")
	return nil
}

// extractClientID pulls the client segment out of a documents/{clientID}/...
// object key.
func extractClientID(key string) (string, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] != "documents" || parts[1] == "" {
		return "", fmt.Errorf("object key %q does not match documents/{client}/...", key)
	}
	return parts[1], nil
}

// requestToken builds the idempotency token for a job submission. The OCR
// service limits tokens to 64 characters; an md5 hex digest is always 32.
func requestToken(clientID string, at time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d", clientID, at.Unix())))
	return fmt.Sprintf("%x", sum)
}

// ConvertBlocks maps OCR service blocks onto the wire model used in
// completion notifications.
func ConvertBlocks(blocks []types.Block) []models.AnalysisBlock {
	converted := make([]models.AnalysisBlock, 0, len(blocks))
	for _, b := range blocks {
		block := models.AnalysisBlock{
			ID:        aws.ToString(b.Id),
			BlockType: string(b.BlockType),
			Text:      aws.ToString(b.Text),
		}
		for _, et := range b.EntityTypes {
			block.EntityTypes = append(block.EntityTypes, string(et))
		}
		for _, rel := range b.Relationships {
			block.Relationships = append(block.Relationships, models.BlockRelationship{
				Type: string(rel.Type),
				IDs:  rel.Ids,
			})
		}
		converted = append(converted, block)
	}
	return converted
}
