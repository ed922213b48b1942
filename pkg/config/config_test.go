package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: development
server:
  port: 8080
backend:
  type: direct
feed:
  api_key: feed-key
  websocket_url: wss://feed.example.com
  symbols: ["NQ", "ES"]
market_data:
  base_url: https://data.example.com
sessions:
  timezone: America/New_York
  weekend:
    friday_close: "17:00"
    sunday_open: "18:00"
calendar:
  - name: CPI
    weekday: 2
    at: "08:30"
    impact: high
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "direct", c.Backend.Type)
	assert.Equal(t, []string{"NQ", "ES"}, c.Feed.Symbols)
	assert.Equal(t, "America/New_York", c.Sessions.Timezone)
	require.Len(t, c.Calendar, 1)
	assert.Equal(t, "CPI", c.Calendar[0].Name)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	c.Backend.Type = "rabbitmq"
	assert.Error(t, c.Validate())
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	c.Backend.Type = "kafka"
	assert.Error(t, c.Validate())

	c.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, c.Validate())
}

func TestValidateCalendarEntry(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	c.Calendar[0].At = "25:00"
	assert.Error(t, c.Validate())

	c.Calendar[0].At = "08:30"
	c.Calendar[0].Weekday = 9
	assert.Error(t, c.Validate())
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker-a:9092,broker-b:9092")
	t.Setenv("SYMBOLS", "NKD,FDAX")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "kafka", c.Backend.Type)
	assert.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, c.Kafka.Brokers)
	assert.Equal(t, []string{"NKD", "FDAX"}, c.Feed.Symbols)
	assert.True(t, c.Views.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Views.Redis.Addr)
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("17:00")
	require.NoError(t, err)
	assert.Equal(t, 1020, min)

	min, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, min)

	_, err = ParseClock("24:00")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}
