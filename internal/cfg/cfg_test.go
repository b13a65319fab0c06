package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
symbol: ETHUSD
model:
  path: /tmp/models/eth.model
  estimators: 250
  maxDepth: 12
  seed: 7
alert:
  webhookURL: https://alerts.example.com/hook
  timeout: 10s
system:
  dataPath: /tmp/data
  metricsPort: 9191
  logLevel: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromYAML(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, testYAML))

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ETHUSD", s.Symbol)
	assert.Equal(t, "/tmp/models/eth.model", s.ModelPath)
	assert.Equal(t, 250, s.Estimators)
	assert.Equal(t, 12, s.MaxDepth)
	assert.Equal(t, int64(7), s.Seed)
	assert.Equal(t, "/tmp/data", s.DataPath)
	assert.Equal(t, 9191, s.MetricsPort)
	assert.Equal(t, "https://alerts.example.com/hook", s.WebhookURL)
	assert.Equal(t, 10*time.Second, s.WebhookTimeout)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, testYAML))
	t.Setenv("SYMBOL", "BTCUSD")
	t.Setenv("ESTIMATORS", "50")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "BTCUSD", s.Symbol)
	assert.Equal(t, 50, s.Estimators)
	// Untouched values keep the file's settings.
	assert.Equal(t, 12, s.MaxDepth)
}

func TestLoad_YAMLDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, "symbol: SOLUSD\n"))

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "SOLUSD", s.Symbol)
	assert.Equal(t, "models/anomaly.model", s.ModelPath)
	assert.Equal(t, 100, s.Estimators)
	assert.Equal(t, 10, s.MaxDepth)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, 9090, s.MetricsPort)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SYMBOL", "BTCUSD")
	t.Setenv("MODEL_PATH", "models/btc.model")
	t.Setenv("MAX_DEPTH", "6")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "BTCUSD", s.Symbol)
	assert.Equal(t, "models/btc.model", s.ModelPath)
	assert.Equal(t, 6, s.MaxDepth)
	assert.Equal(t, 100, s.Estimators)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"estimators too large", "ESTIMATORS", "999999"},
		{"negative depth", "MAX_DEPTH", "-1"},
		{"privileged metrics port", "METRICS_PORT", "80"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
