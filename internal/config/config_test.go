// ABOUTME: Tests for YAML config loading, env expansion, and validation.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":9090"
engine:
  launch_command: ["matlab", "-batch", "matlabgateway.worker"]
  discovery_dir: /var/run/matlab-sessions
  startup_timeout: 90s
database:
  path: /var/lib/gateway/history.db
auth:
  mode: jwt
  jwt_secret: supersecret
logging:
  level: debug
  format: json
webstatus:
  enabled: true
  path: /internal/status
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"matlab", "-batch", "matlabgateway.worker"}, cfg.Engine.LaunchCommand)
	assert.Equal(t, "/var/run/matlab-sessions", cfg.Engine.DiscoveryDir)
	assert.Equal(t, 90*time.Second, cfg.Engine.StartupTimeout)
	assert.Equal(t, "/var/lib/gateway/history.db", cfg.Database.Path)
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.WebStatus.Enabled)
	assert.Equal(t, "/internal/status", cfg.WebStatus.Path)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "matlab-gateway.db", cfg.Database.Path)
	assert.Equal(t, "none", cfg.Auth.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "/status", cfg.WebStatus.Path)
	assert.False(t, cfg.WebStatus.Enabled)
}

func TestDefaultMatchesEmptyFile(t *testing.T) {
	fromFile, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, fromFile, Default())
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_GATEWAY_SECRET", "from-env")
	t.Setenv("TEST_GATEWAY_ADDR", ":7070")

	cfg, err := Load(writeConfig(t, `
server:
  http_addr: "${TEST_GATEWAY_ADDR}"
auth:
  mode: jwt
  jwt_secret: ${TEST_GATEWAY_SECRET}
`))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.HTTPAddr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestUnsetEnvVarExpandsEmpty(t *testing.T) {
	_, err := Load(writeConfig(t, `
auth:
  mode: jwt
  jwt_secret: ${DEFINITELY_NOT_SET_ANYWHERE}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestInvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
engine:
  startup_timeout: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup_timeout")
}

func TestValidateAuthModes(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"jwt without secret", "auth:\n  mode: jwt\n", "jwt_secret"},
		{"tokens without tokens", "auth:\n  mode: tokens\n", "auth.tokens"},
		{"unknown mode", "auth:\n  mode: oauth\n", "auth.mode"},
		{"tokens with tokens", "auth:\n  mode: tokens\n  tokens:\n    alice: sekret\n", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestInvalidLoggingFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
