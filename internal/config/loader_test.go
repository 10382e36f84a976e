package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8081
  mode: test
  assets_dir: ./testdata
dispatcher:
  max_concurrent: 4
  window: 8s
operation:
  poll_interval: 250ms
  max_attempts: 3
directory:
  backend: static
  static:
    "1234": asst_abc
secrets:
  openai-apikey-1234: sk-test
minio:
  endpoint: minio:9000
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Dispatcher.MaxConcurrent)
	assert.Equal(t, 2*time.Second, cfg.Dispatcher.Spacing())
	assert.Equal(t, 250*time.Millisecond, cfg.Operation.PollInterval)
	assert.Equal(t, 3, cfg.Operation.MaxAttempts)
	assert.Equal(t, "asst_abc", cfg.Directory.Static["1234"])
	assert.Equal(t, "sk-test", cfg.Secrets["openai-apikey-1234"])
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidContent(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "log:\n  level: loud\ndirectory:\n  backend: static\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("LEADSCORE_DISPATCHER_MAX_CONCURRENT", "7")
	t.Setenv("LEADSCORE_OPERATION_POLL_INTERVAL", "1s")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Dispatcher.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.Operation.PollInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEADSCORE_DIRECTORY_BACKEND", "static")
	t.Setenv("LEADSCORE_SERVER_PORT", "9999")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, DefaultMaxConcurrent, cfg.Dispatcher.MaxConcurrent)
}

func TestLoadOrEnv_FallsBackToEnv(t *testing.T) {
	t.Setenv("LEADSCORE_DIRECTORY_BACKEND", "static")

	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Directory.Backend)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := validConfigYAML + "\nmetrics:\n  namespace: reloaded\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case cfg := <-changed:
		assert.Equal(t, "reloaded", cfg.Metrics.Namespace)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

//Personal.AI order the ending
