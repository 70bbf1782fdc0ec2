package cmd

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crmhub/crm-platform-services/internal/awsclient"
	"github.com/crmhub/crm-platform-services/internal/emailer"
	"github.com/crmhub/crm-platform-services/internal/events"
)

var emailerCmd = &cobra.Command{
	Use:   "emailer",
	Short: "Run the worker that emails clients a document upload link",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()

		logger := log.With().Str("worker", "emailer").Logger()
		ctx := logger.WithContext(context.Background())

		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}

		s3Client := awsclient.NewS3Client(awsCfg)
		sqsClient := awsclient.NewSQSClient(awsCfg)
		sender := emailer.NewSender(
			s3.NewPresignClient(s3Client),
			s3Client,
			awsclient.NewSESClient(awsCfg),
			events.NewPublisher(sqsClient, cfg.Queues.AuditQueueURL),
			cfg.Email,
		)

		consumer := events.NewConsumer(sqsClient, cfg.Queues.EmailQueueURL)
		if err := consumer.Poll(ctx, sender.HandleMessage); err != nil {
			log.Error().Err(err).Msg("emailer worker stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(emailerCmd)
}
