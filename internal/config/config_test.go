package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "telegram:\n  chat_id: 123\n"))
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Scanner.IntervalSeconds)
	assert.Equal(t, 50_000_000.0, cfg.Scanner.MinVolumeUSDT)
	assert.Equal(t, 5, cfg.Scanner.MaxConcurrentRequests)
	assert.Equal(t, 10, cfg.Scanner.MaxRequestsPerSecond)
	assert.Equal(t, 1, cfg.Scanner.PairsCacheHours)
	assert.Equal(t, 20, cfg.Scanner.OrderBookDepth)

	assert.Equal(t, 5, cfg.Signal.MinScore)
	assert.Equal(t, 9, cfg.Signal.EMAFast)
	assert.Equal(t, 21, cfg.Signal.EMAMedium)
	assert.Equal(t, 50, cfg.Signal.EMASlow)
	assert.Equal(t, 14, cfg.Signal.RSIPeriod)
	assert.Equal(t, 50.0, cfg.Signal.RSILongMin)
	assert.Equal(t, 65.0, cfg.Signal.RSILongMax)
	assert.Equal(t, 35.0, cfg.Signal.RSIShortMin)
	assert.Equal(t, 50.0, cfg.Signal.RSIShortMax)
	assert.Equal(t, 14, cfg.Signal.ATRPeriod)
	assert.Equal(t, 20, cfg.Signal.VolumeSMA)
	assert.Equal(t, 2.0, cfg.Signal.SRDistancePercent)
	assert.Equal(t, 0.5, cfg.Signal.SRClosePercent)

	assert.Equal(t, int64(123), cfg.Telegram.ChatID)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
scanner:
  interval_seconds: 60
  min_volume_usdt: 100000000
signal:
  min_score: 7
  ema_fast: 12
`))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Scanner.IntervalSeconds)
	assert.Equal(t, 100_000_000.0, cfg.Scanner.MinVolumeUSDT)
	assert.Equal(t, 7, cfg.Signal.MinScore)
	assert.Equal(t, 12, cfg.Signal.EMAFast)

	// Незатронутые поля получают значения по умолчанию
	assert.Equal(t, 5, cfg.Scanner.MaxConcurrentRequests)
	assert.Equal(t, 21, cfg.Signal.EMAMedium)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadMalformedFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "scanner: [broken"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100500")

	secrets, err := LoadSecrets()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", secrets.TelegramBotToken)
	assert.Equal(t, int64(-100500), secrets.TelegramChatID)
}
