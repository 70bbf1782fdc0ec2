package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crmhub/crm-platform-services/internal/awsclient"
	"github.com/crmhub/crm-platform-services/internal/events"
	"github.com/crmhub/crm-platform-services/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the worker that starts OCR analysis for uploaded documents",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()

		logger := log.With().Str("worker", "ingest").Logger()
		ctx := logger.WithContext(context.Background())

		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}

		processor := ingest.NewProcessor(
			awsclient.NewTextractClient(awsCfg),
			awsclient.NewSNSClient(awsCfg),
			cfg.Ingest.SNSTopicARN,
			cfg.Ingest.SNSRoleARN,
		)

		consumer := events.NewConsumer(awsclient.NewSQSClient(awsCfg), cfg.Queues.IngestQueueURL)
		if err := consumer.Poll(ctx, processor.HandleEvent); err != nil {
			log.Error().Err(err).Msg("ingest worker stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
