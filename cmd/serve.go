package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crmhub/crm-platform-services/api/handlers"
	"github.com/crmhub/crm-platform-services/api/middleware"
	"github.com/crmhub/crm-platform-services/api/services"
	"github.com/crmhub/crm-platform-services/internal/appconfig"
	"github.com/crmhub/crm-platform-services/internal/auditlog"
	"github.com/crmhub/crm-platform-services/internal/awsclient"
	"github.com/crmhub/crm-platform-services/internal/directory"
	"github.com/crmhub/crm-platform-services/internal/events"
	"github.com/crmhub/crm-platform-services/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()
		ctx := context.Background()

		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}

		// Log the resolved AWS identity so misconfigured credentials show up
		// at startup rather than on the first directory call.
		stsClient := awsclient.NewSTSClient(awsCfg)
		identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			log.Warn().Err(err).Msg("Could not resolve AWS caller identity")
		} else {
			log.Info().Str("account", aws.ToString(identity.Account)).
				Str("arn", aws.ToString(identity.Arn)).Msg("AWS identity resolved")
		}

		clientSecret, err := resolveClientSecret(ctx, cfg, awsclient.NewSecretsManagerClient(awsCfg))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve directory client secret")
		}

		dir := directory.NewCognitoDirectory(
			awsclient.NewCognitoClient(awsCfg),
			cfg.Directory.UserPoolID,
			cfg.Directory.ClientID,
			clientSecret,
		)

		service := &services.Service{
			Config:    cfg,
			Directory: dir,
			Audit:     events.NewPublisher(awsclient.NewSQSClient(awsCfg), cfg.Queues.AuditQueueURL),
			Logs:      auditlog.NewStore(awsclient.NewDynamoDBClient(awsCfg), cfg.Logs.TableName),
		}

		// Create routes
		r := mux.NewRouter()
		api := r.PathPrefix(cfg.BasePath).Subrouter()
		api.Use(middleware.WithLogger)

		// Auth routes are token-free; logging in is how a token is obtained.
		auth := api.PathPrefix("/auth").Subrouter()
		auth.HandleFunc("/login", handlers.Login(service)).Methods(http.MethodPost)
		auth.HandleFunc("/challenge", handlers.RespondToChallenge(service)).Methods(http.MethodPost)
		auth.HandleFunc("/refresh", handlers.RefreshToken(service)).Methods(http.MethodPost)
		auth.HandleFunc("/logout", handlers.Logout(service)).Methods(http.MethodPost)
		auth.HandleFunc("/forgot-password", handlers.ForgotPassword(service)).Methods(http.MethodPost)
		auth.HandleFunc("/confirm-forgot-password", handlers.ConfirmForgotPassword(service)).Methods(http.MethodPost)

		adminRoles := []string{string(models.RoleRootAdmin), string(models.RoleAdmin)}

		// User management routes
		users := api.PathPrefix("/users").Subrouter()
		users.Use(middleware.JWTMiddleware)
		users.Handle("", middleware.RequireRole(string(models.RoleRootAdmin))(handlers.CreateUser(service))).Methods(http.MethodPost)
		users.Handle("", middleware.RequireRole(adminRoles...)(handlers.GetUsers(service))).Methods(http.MethodGet)
		users.Handle("", middleware.RequireRole(adminRoles...)(handlers.UpdateUser(service))).Methods(http.MethodPut)
		users.Handle("/enable", middleware.RequireRole(adminRoles...)(handlers.EnableUser(service))).Methods(http.MethodPut)
		users.Handle("/disable", middleware.RequireRole(adminRoles...)(handlers.DisableUser(service))).Methods(http.MethodPut)

		// Audit log routes
		logs := api.PathPrefix("/logs").Subrouter()
		logs.Use(middleware.JWTMiddleware)
		logs.Handle("", middleware.RequireRole(adminRoles...)(handlers.GetAuditLogs(service))).Methods(http.MethodGet)

		log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))

		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", host, port), r); err != nil {
			log.Error().Err(err).Msg("could not start server")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}

// resolveClientSecret returns the app client secret, fetching it from Secrets
// Manager when only an ARN is configured. An inline secret wins.
func resolveClientSecret(ctx context.Context, cfg *appconfig.Config, sm *secretsmanager.Client) (string, error) {
	if cfg.Directory.ClientSecret != "" || cfg.Directory.ClientSecretARN == "" {
		return cfg.Directory.ClientSecret, nil
	}

	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.Directory.ClientSecretARN),
	})
	if err != nil {
		return "", fmt.Errorf("fetch client secret %s: %w", cfg.Directory.ClientSecretARN, err)
	}
	return aws.ToString(out.SecretString), nil
}
