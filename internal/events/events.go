package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
)

type sqsSendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsReceiveAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Publisher sends JSON messages to one queue.
type Publisher struct {
	client   sqsSendAPI
	queueURL string
}

func NewPublisher(client sqsSendAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Publish marshals v and sends it as a single message.
func (p *Publisher) Publish(ctx context.Context, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send queue message: %w", err)
	}
	return nil
}

// Handler processes one raw message body. A non-nil error leaves the message
// on the queue for redelivery after the visibility timeout.
type Handler func(ctx context.Context, body string) error

// Consumer long-polls one queue and dispatches each message to a handler.
type Consumer struct {
	client      sqsReceiveAPI
	queueURL    string
	waitSeconds int32
	batchSize   int32
}

func NewConsumer(client sqsReceiveAPI, queueURL string) *Consumer {
	return &Consumer{
		client:      client,
		queueURL:    queueURL,
		waitSeconds: 20,
		batchSize:   10,
	}
}

// Poll receives and handles messages until ctx is cancelled. Messages are
// deleted only after the handler succeeds; handler failures are logged and the
// message is left for redelivery.
func (c *Consumer) Poll(ctx context.Context, handler Handler) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("queue_url", c.queueURL).Msg("polling queue")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("queue_url", c.queueURL).Msg("stopping queue consumer")
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: c.batchSize,
			WaitTimeSeconds:     c.waitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("failed to receive messages")
			continue
		}

		for _, msg := range out.Messages {
			c.handleMessage(ctx, msg, handler)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg sqstypes.Message, handler Handler) {
	logger := zerolog.Ctx(ctx)

	if err := handler(ctx, aws.ToString(msg.Body)); err != nil {
		logger.Error().Err(err).Str("message_id", aws.ToString(msg.MessageId)).
			Msg("message handling failed, leaving for redelivery")
		return
	}

	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		logger.Error().Err(err).Str("message_id", aws.ToString(msg.MessageId)).
			Msg("failed to delete handled message")
	}
}
