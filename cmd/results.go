package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crmhub/crm-platform-services/internal/awsclient"
	"github.com/crmhub/crm-platform-services/internal/events"
	"github.com/crmhub/crm-platform-services/internal/ingest"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Run the worker that parses finished OCR jobs and queues them for verification",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()

		logger := log.With().Str("worker", "results").Logger()
		ctx := logger.WithContext(context.Background())

		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}

		sqsClient := awsclient.NewSQSClient(awsCfg)
		processor := ingest.NewResultsProcessor(
			awsclient.NewTextractClient(awsCfg),
			events.NewPublisher(sqsClient, cfg.Queues.VerificationQueueURL),
		)

		consumer := events.NewConsumer(sqsClient, cfg.Queues.ResultsQueueURL)
		if err := consumer.Poll(ctx, processor.HandleMessage); err != nil {
			log.Error().Err(err).Msg("results worker stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}
