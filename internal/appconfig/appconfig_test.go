package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_USER_POOL_ID", "eu-west-2_abc123")

	path := writeConfig(t, `
host: 0.0.0.0
basePath: /api/v1
aws:
  region: eu-west-2
directory:
  userPoolId: "{{.TEST_USER_POOL_ID}}"
  clientId: client-abc
queues:
  auditQueueUrl: https://queue.example/audit
logs:
  tableName: audit-logs
`)

	cfg, err := LoadConfig(path)

	assert.NoError(t, err)
	assert.Equal(t, "eu-west-2_abc123", cfg.Directory.UserPoolID)
	assert.Equal(t, "client-abc", cfg.Directory.ClientID)
	assert.Equal(t, "https://queue.example/audit", cfg.Queues.AuditQueueURL)
	assert.Equal(t, 86400, cfg.Email.PresignExpirySec)
}

func TestLoadConfigRequiresDirectorySettings(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: eu-west-2
directory:
  clientId: client-abc
`)

	_, err := LoadConfig(path)

	assert.ErrorContains(t, err, "userPoolId")
}

func TestLoadConfigMissingPath(t *testing.T) {
	_, err := LoadConfig("")

	assert.Error(t, err)
}
