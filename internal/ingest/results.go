package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/models"
)

type textractGetAPI interface {
	GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

type resultPublisher interface {
	Publish(ctx context.Context, v interface{}) error
}

// ResultsProcessor consumes OCR completion notifications, fetches and parses
// the analysis output and forwards the extracted document for verification.
type ResultsProcessor struct {
	textract  textractGetAPI
	publisher resultPublisher
	now       func() time.Time
}

func NewResultsProcessor(textractClient textractGetAPI, publisher resultPublisher) *ResultsProcessor {
	return &ResultsProcessor{
		textract:  textractClient,
		publisher: publisher,
		now:       time.Now,
	}
}

// snsEnvelope is the wrapper a topic subscription puts around the original
// notification when it lands on a queue.
type snsEnvelope struct {
	Message string `json:"Message"`
}

// HandleMessage processes one completion notification. Failed jobs are logged
// and dropped; retrying them would fail the same way.
func (p *ResultsProcessor) HandleMessage(ctx context.Context, body string) error {
	logger := zerolog.Ctx(ctx)

	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var completion models.AnalysisCompletion
	if err := json.Unmarshal([]byte(body), &completion); err != nil {
		return fmt.Errorf("decode completion notification: %w", err)
	}

	if completion.Status != "SUCCEEDED" {
		logger.Warn().Str("job_id", completion.JobID).Str("status", completion.Status).
			Msg("analysis job did not succeed, dropping")
		return nil
	}

	metadata, err := parseJobTag(completion.JobTag)
	if err != nil {
		return err
	}

	blocks := completion.Blocks
	if len(blocks) == 0 {
		blocks, err = p.fetchBlocks(ctx, completion.JobID)
		if err != nil {
			return err
		}
	}

	extracted := parseBlocks(blocks)
	logger.Info().Str("job_id", completion.JobID).Str("client_id", metadata.ClientID).
		Int("lines", len(extracted.Text)).Int("key_value_pairs", len(extracted.KeyValuePairs)).
		Msg("analysis output parsed")

	return p.publisher.Publish(ctx, models.VerificationResult{
		ClientID:      metadata.ClientID,
		ExtractedData: extracted,
		Metadata:      metadata,
		Timestamp:     p.now().UTC().Format(time.RFC3339),
	})
}

// fetchBlocks pages through the full analysis output for a job.
func (p *ResultsProcessor) fetchBlocks(ctx context.Context, jobID string) ([]models.AnalysisBlock, error) {
	var blocks []models.AnalysisBlock
	var nextToken *string

	for {
		out, err := p.textract.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch analysis output for job %s: %w", jobID, err)
		}

		blocks = append(blocks, ConvertBlocks(out.Blocks)...)
		if out.NextToken == nil {
			return blocks, nil
		}
		nextToken = out.NextToken
	}
}

// parseJobTag unpacks the clientID|bucket|key tag set at submission.
func parseJobTag(tag string) (models.JobMetadata, error) {
	parts := strings.SplitN(tag, "|", 3)
	if len(parts) != 3 {
		return models.JobMetadata{}, fmt.Errorf("malformed job tag %q", tag)
	}
	return models.JobMetadata{ClientID: parts[0], Bucket: parts[1], Key: parts[2]}, nil
}

// parseBlocks extracts the text lines and the form key/value pairs from a
// block list. Form pairs are stitched together through the block relationship
// graph: a KEY block points at its VALUE block, and both spell their text
// through CHILD word blocks.
func parseBlocks(blocks []models.AnalysisBlock) models.ExtractedDocument {
	byID := make(map[string]models.AnalysisBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	extracted := models.ExtractedDocument{KeyValuePairs: map[string]string{}}
	for _, b := range blocks {
		switch b.BlockType {
		case "LINE":
			if b.Text != "" {
				extracted.Text = append(extracted.Text, b.Text)
			}
		case "KEY_VALUE_SET":
			if !hasEntityType(b, "KEY") {
				continue
			}
			key := childText(b, byID)
			if key == "" {
				continue
			}
			extracted.KeyValuePairs[key] = valueText(b, byID)
		}
	}
	return extracted
}

func hasEntityType(block models.AnalysisBlock, entityType string) bool {
	for _, et := range block.EntityTypes {
		if et == entityType {
			return true
		}
	}
	return false
}

// childText joins the words a block points at through its CHILD relationship.
func childText(block models.AnalysisBlock, byID map[string]models.AnalysisBlock) string {
	var words []string
	for _, rel := range block.Relationships {
		if rel.Type != "CHILD" {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := byID[id]
			if !ok || child.Text == "" {
				continue
			}
			words = append(words, child.Text)
		}
	}
	return strings.Join(words, " ")
}

// valueText resolves a KEY block's VALUE relationship and spells out the value
// block's words.
func valueText(keyBlock models.AnalysisBlock, byID map[string]models.AnalysisBlock) string {
	for _, rel := range keyBlock.Relationships {
		if rel.Type != "VALUE" {
			continue
		}
		for _, id := range rel.IDs {
			if valueBlock, ok := byID[id]; ok {
				return childText(valueBlock, byID)
			}
		}
	}
	return ""
}
