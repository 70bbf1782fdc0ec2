package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crmhub/crm-platform-services/internal/auditlog"
	"github.com/crmhub/crm-platform-services/internal/awsclient"
	"github.com/crmhub/crm-platform-services/internal/events"
	"github.com/crmhub/crm-platform-services/models"
)

var auditlogCmd = &cobra.Command{
	Use:   "auditlog",
	Short: "Run the worker that writes queued audit records to the log store",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()

		logger := log.With().Str("worker", "auditlog").Logger()
		ctx := logger.WithContext(context.Background())

		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}

		store := auditlog.NewStore(awsclient.NewDynamoDBClient(awsCfg), cfg.Logs.TableName)

		consumer := events.NewConsumer(awsclient.NewSQSClient(awsCfg), cfg.Queues.AuditQueueURL)
		err = consumer.Poll(ctx, func(ctx context.Context, body string) error {
			var entry models.AuditLogEntry
			if err := json.Unmarshal([]byte(body), &entry); err != nil {
				return fmt.Errorf("decode audit record: %w", err)
			}
			_, err := store.Put(ctx, entry)
			return err
		})
		if err != nil {
			log.Error().Err(err).Msg("auditlog worker stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(auditlogCmd)
}
