package appconfig

import (
	"bytes"
	"errors"
	"html/template"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// Config holds all configuration details
type Config struct {
	Host      string          `yaml:"host"`
	BasePath  string          `yaml:"basePath"`
	AWS       AWSConfig       `yaml:"aws"`
	Directory DirectoryConfig `yaml:"directory"`
	Queues    QueuesConfig    `yaml:"queues"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Email     EmailConfig     `yaml:"email"`
	Logs      LogsConfig      `yaml:"logs"`
}

// AWSConfig defines the AWS account context shared by all clients
type AWSConfig struct {
	Region string `yaml:"region"`
}

// DirectoryConfig defines the identity directory (user pool) connection details.
// UserPoolID and ClientID are mandatory; ClientSecret is only needed when the
// app client was created with a secret, and may be supplied either inline or as
// a Secrets Manager ARN resolved at startup.
type DirectoryConfig struct {
	UserPoolID        string `yaml:"userPoolId"`
	ClientID          string `yaml:"clientId"`
	ClientSecret      string `yaml:"clientSecret"`
	ClientSecretARN   string `yaml:"clientSecretArn"`
	RootAdminUsername string `yaml:"rootAdminUsername"`
}

// QueuesConfig names the managed queues the workers consume and publish to.
type QueuesConfig struct {
	IngestQueueURL       string `yaml:"ingestQueueUrl"`
	ResultsQueueURL      string `yaml:"resultsQueueUrl"`
	VerificationQueueURL string `yaml:"verificationQueueUrl"`
	EmailQueueURL        string `yaml:"emailQueueUrl"`
	AuditQueueURL        string `yaml:"auditQueueUrl"`
}

// IngestConfig defines the OCR analysis settings for uploaded documents.
type IngestConfig struct {
	SNSTopicARN string `yaml:"snsTopicArn"`
	SNSRoleARN  string `yaml:"snsRoleArn"`
}

// EmailConfig defines the verification email settings.
type EmailConfig struct {
	Bucket             string `yaml:"bucket"`
	Sender             string `yaml:"sender"`
	TemplateName       string `yaml:"templateName"`
	ConfigurationSet   string `yaml:"configurationSet"`
	PresignExpirySec   int    `yaml:"presignExpirySeconds"`
	SuccessRedirectURL string `yaml:"successRedirectUrl"`
}

// LogsConfig defines the audit log store settings.
type LogsConfig struct {
	TableName string `yaml:"tableName"`
}

// LoadConfig loads and parses the configuration from a given file path
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		err := errors.New("config file path is required")
		log.Error().Err(err).Msg("config file not provided")
		return nil, err
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		log.Error().Err(err).Msg("error parsing config file template")
		return nil, err
	}

	// Create a map of environment variables
	envVars := loadEnvVars()

	// Execute the template with environment variables
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, envVars)
	if err != nil {
		log.Error().Err(err).Msg("error executing config file template")
		return nil, err
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config YAML")
		return nil, err
	}

	// Missing pool or client ID makes every directory call fail, so refuse to
	// start without them.
	if config.Directory.UserPoolID == "" || config.Directory.ClientID == "" {
		return nil, errors.New("directory.userPoolId and directory.clientId must be set")
	}

	if config.Email.PresignExpirySec == 0 {
		config.Email.PresignExpirySec = 86400
	}

	return &config, nil
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
