package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/skalibog/screener/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Signal   SignalConfig   `yaml:"signal"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// BinanceConfig содержит настройки подключения к Binance.
// Ключи не обязательны: сканер пользуется только публичными рыночными данными.
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// ScannerConfig содержит настройки цикла сканирования и получения данных
type ScannerConfig struct {
	IntervalSeconds       int     `yaml:"interval_seconds"`
	MinVolumeUSDT         float64 `yaml:"min_volume_usdt"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`
	MaxRequestsPerSecond  int     `yaml:"max_requests_per_second"`
	PairsCacheHours       int     `yaml:"pairs_cache_hours"`
	OrderBookDepth        int     `yaml:"orderbook_depth"`
}

// SignalConfig содержит параметры индикаторов и скоринга
type SignalConfig struct {
	MinScore          int     `yaml:"min_score"`
	EMAFast           int     `yaml:"ema_fast"`
	EMAMedium         int     `yaml:"ema_medium"`
	EMASlow           int     `yaml:"ema_slow"`
	RSIPeriod         int     `yaml:"rsi_period"`
	RSILongMin        float64 `yaml:"rsi_long_min"`
	RSILongMax        float64 `yaml:"rsi_long_max"`
	RSIShortMin       float64 `yaml:"rsi_short_min"`
	RSIShortMax       float64 `yaml:"rsi_short_max"`
	ATRPeriod         int     `yaml:"atr_period"`
	VolumeSMA         int     `yaml:"volume_sma"`
	SRDistancePercent float64 `yaml:"sr_distance_percent"`
	SRClosePercent    float64 `yaml:"sr_close_percent"`
}

// TelegramConfig содержит настройки Telegram-бота.
// Токен задается только через окружение, в файле не хранится.
type TelegramConfig struct {
	ChatID int64 `yaml:"chat_id"`
}

// Secrets содержит значения, приходящие из окружения
type Secrets struct {
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// Load загружает конфигурацию из файла и применяет значения по умолчанию
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyDefaults()

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", config))

	return &config, nil
}

// LoadSecrets загружает секреты из окружения (файл .env подхватывается, если есть)
func LoadSecrets() (*Secrets, error) {
	// Отсутствие .env не является ошибкой: в проде переменные задаются напрямую
	_ = godotenv.Load()

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	return &secrets, nil
}

// applyDefaults заполняет пропущенные значения значениями по умолчанию
func (c *Config) applyDefaults() {
	if c.Scanner.IntervalSeconds == 0 {
		c.Scanner.IntervalSeconds = 120
	}
	if c.Scanner.MinVolumeUSDT == 0 {
		c.Scanner.MinVolumeUSDT = 50_000_000
	}
	if c.Scanner.MaxConcurrentRequests == 0 {
		c.Scanner.MaxConcurrentRequests = 5
	}
	if c.Scanner.MaxRequestsPerSecond == 0 {
		c.Scanner.MaxRequestsPerSecond = 10
	}
	if c.Scanner.PairsCacheHours == 0 {
		c.Scanner.PairsCacheHours = 1
	}
	if c.Scanner.OrderBookDepth == 0 {
		c.Scanner.OrderBookDepth = 20
	}

	if c.Signal.MinScore == 0 {
		c.Signal.MinScore = 5
	}
	if c.Signal.EMAFast == 0 {
		c.Signal.EMAFast = 9
	}
	if c.Signal.EMAMedium == 0 {
		c.Signal.EMAMedium = 21
	}
	if c.Signal.EMASlow == 0 {
		c.Signal.EMASlow = 50
	}
	if c.Signal.RSIPeriod == 0 {
		c.Signal.RSIPeriod = 14
	}
	if c.Signal.RSILongMin == 0 {
		c.Signal.RSILongMin = 50
	}
	if c.Signal.RSILongMax == 0 {
		c.Signal.RSILongMax = 65
	}
	if c.Signal.RSIShortMin == 0 {
		c.Signal.RSIShortMin = 35
	}
	if c.Signal.RSIShortMax == 0 {
		c.Signal.RSIShortMax = 50
	}
	if c.Signal.ATRPeriod == 0 {
		c.Signal.ATRPeriod = 14
	}
	if c.Signal.VolumeSMA == 0 {
		c.Signal.VolumeSMA = 20
	}
	if c.Signal.SRDistancePercent == 0 {
		c.Signal.SRDistancePercent = 2.0
	}
	if c.Signal.SRClosePercent == 0 {
		c.Signal.SRClosePercent = 0.5
	}
}
