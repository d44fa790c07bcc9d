package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Интервалы свечей, используемые сканером
const (
	Interval5m = "5m"
	Interval1m = "1m"
)

// BinanceClient клиент рыночных данных Binance USDT-M фьючерсов.
// Все сетевые вызовы проходят через общий ограничитель запросов.
type BinanceClient struct {
	futures *futures.Client
	gate    *gate
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig, scanCfg config.ScannerConfig) *BinanceClient {
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)

	if cfg.Testnet {
		futures.UseTestnet = true
	}

	return &BinanceClient{
		futures: futuresClient,
		gate:    newGate(scanCfg.MaxConcurrentRequests, scanCfg.MaxRequestsPerSecond),
	}
}

// Init проверяет доступность биржи и метаданных рынков.
// Ошибка здесь фатальна для запуска и не ретраится.
func (c *BinanceClient) Init(ctx context.Context) error {
	info, err := c.futures.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка инициализации биржи: %w", err)
	}

	logger.Info("Биржа инициализирована", zap.Int("markets", len(info.Symbols)))
	return nil
}

// ListMarkets возвращает описания всех рынков биржи
func (c *BinanceClient) ListMarkets(ctx context.Context) ([]models.Market, error) {
	if err := c.gate.enter(ctx); err != nil {
		return nil, err
	}
	defer c.gate.leave()

	info, err := c.futures.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка рынков: %w", err)
	}

	markets := make([]models.Market, len(info.Symbols))
	for i, s := range info.Symbols {
		markets[i] = models.Market{
			Symbol:       s.Symbol,
			QuoteAsset:   s.QuoteAsset,
			ContractType: string(s.ContractType),
			Active:       s.Status == "TRADING",
		}
	}

	return markets, nil
}

// FetchTicker возвращает 24-часовую статистику по символу
func (c *BinanceClient) FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	if err := c.gate.enter(ctx); err != nil {
		return nil, err
	}
	defer c.gate.leave()

	stats, err := c.futures.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тикера: %w", err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("нет данных тикера для %s", symbol)
	}

	lastPrice, err := strconv.ParseFloat(stats[0].LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга цены тикера: %w", err)
	}

	quoteVolume, err := strconv.ParseFloat(stats[0].QuoteVolume, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга объема тикера: %w", err)
	}

	return &models.Ticker{
		Symbol:      symbol,
		LastPrice:   lastPrice,
		QuoteVolume: quoteVolume,
	}, nil
}

// GetKlines получает исторические свечи
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	if err := c.gate.enter(ctx); err != nil {
		return nil, err
	}
	defer c.gate.leave()

	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]*models.Candle, len(klines))
	for i, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга цены открытия: %w", err)
		}
		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга максимума: %w", err)
		}
		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга минимума: %w", err)
		}
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга цены закрытия: %w", err)
		}
		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга объема: %w", err)
		}

		candles[i] = &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.Unix(k.OpenTime/1000, 0),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: time.Unix(k.CloseTime/1000, 0),
		}
	}

	return candles, nil
}

// GetOrderBook получает стакан заявок
func (c *BinanceClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	if err := c.gate.enter(ctx); err != nil {
		return nil, err
	}
	defer c.gate.leave()

	ob, err := c.futures.NewDepthService().
		Symbol(symbol).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения стакана: %w", err)
	}

	orderBook := &models.OrderBook{
		Symbol:    symbol,
		Timestamp: time.Now(),
		Bids:      make([]models.OrderBookLevel, len(ob.Bids)),
		Asks:      make([]models.OrderBookLevel, len(ob.Asks)),
	}

	for i, bid := range ob.Bids {
		orderBook.Bids[i] = models.OrderBookLevel{
			Price:  bid.Price,
			Amount: bid.Quantity,
		}
	}

	for i, ask := range ob.Asks {
		orderBook.Asks[i] = models.OrderBookLevel{
			Price:  ask.Price,
			Amount: ask.Quantity,
		}
	}

	return orderBook, nil
}
