package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/skalibog/screener/internal/analysis/indicators"
	"github.com/skalibog/screener/internal/analysis/patterns"
	"github.com/skalibog/screener/internal/analysis/scoring"
	"github.com/skalibog/screener/internal/analysis/srlevels"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Лимиты свечей на один проход
const (
	klines5mLimit = 100
	klines1mLimit = 20
)

// MarketDataClient описывает часть биржевого клиента, необходимую сканеру
type MarketDataClient interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error)
}

// PairSource поставляет список пар для сканирования
type PairSource interface {
	GetLiquidPairs(ctx context.Context) ([]string, error)
}

// Scanner выполняет один полный проход по вселенной пар:
// получение данных, разбор и скоринг каждой пары
type Scanner struct {
	client    MarketDataClient
	pairs     PairSource
	config    config.ScannerConfig
	indAnal   *indicators.Analyzer
	patterns  *patterns.Detector
	srAnal    *srlevels.Analyzer
	generator *scoring.Generator
}

// NewScanner создает новый сканер
func NewScanner(client MarketDataClient, pairs PairSource, scanCfg config.ScannerConfig, sigCfg config.SignalConfig) *Scanner {
	return &Scanner{
		client:    client,
		pairs:     pairs,
		config:    scanCfg,
		indAnal:   indicators.NewAnalyzer(sigCfg),
		patterns:  patterns.NewDetector(),
		srAnal:    srlevels.NewAnalyzer(sigCfg),
		generator: scoring.NewGenerator(sigCfg),
	}
}

// symbolData сырые данные одной пары, полученные параллельно
type symbolData struct {
	candles5m []*models.Candle
	candles1m []*models.Candle
	orderBook *models.OrderBook
}

// Scan выполняет один проход и возвращает сигналы в порядке обработки пар.
// Ошибка по одной паре логируется и не прерывает остальной проход.
func (s *Scanner) Scan(ctx context.Context) ([]*models.Signal, error) {
	pairs, err := s.pairs.GetLiquidPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пар: %w", err)
	}

	logger.Info("Сканируем пары", zap.Int("count", len(pairs)))

	var signals []*models.Signal

	// Пары обрабатываются последовательно: расчеты дешевы, а бюджет
	// параллельности занят сетевыми запросами внутри fetchSymbolData
	for _, symbol := range pairs {
		if ctx.Err() != nil {
			return signals, ctx.Err()
		}

		data, err := s.fetchSymbolData(ctx, symbol)
		if err != nil {
			logger.Warn("Пара пропущена: данные недоступны", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		analysis, err := s.analyze(symbol, data)
		if err != nil {
			logger.Warn("Пара пропущена: разбор не удался", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		if signal := s.generator.Generate(analysis); signal != nil {
			signals = append(signals, signal)
			logger.Info("Найден сигнал",
				zap.String("symbol", signal.Symbol),
				zap.String("direction", signal.Direction),
				zap.Int("score", signal.Score))
		}
	}

	return signals, nil
}

// fetchSymbolData параллельно запрашивает обе серии свечей и стакан.
// Без свечей пара не анализируется; отсутствие стакана допустимо.
func (s *Scanner) fetchSymbolData(ctx context.Context, symbol string) (*symbolData, error) {
	var wg sync.WaitGroup
	var candles5m, candles1m []*models.Candle
	var orderBook *models.OrderBook
	var err5m, err1m, errBook error

	wg.Add(3)

	go func() {
		defer wg.Done()
		candles5m, err5m = s.client.GetKlines(ctx, symbol, exchange.Interval5m, klines5mLimit)
	}()

	go func() {
		defer wg.Done()
		candles1m, err1m = s.client.GetKlines(ctx, symbol, exchange.Interval1m, klines1mLimit)
	}()

	go func() {
		defer wg.Done()
		orderBook, errBook = s.client.GetOrderBook(ctx, symbol, s.config.OrderBookDepth)
	}()

	wg.Wait()

	if err5m != nil {
		return nil, fmt.Errorf("свечи 5m недоступны: %w", err5m)
	}
	if err1m != nil {
		return nil, fmt.Errorf("свечи 1m недоступны: %w", err1m)
	}
	if errBook != nil {
		logger.Warn("Стакан недоступен, уровни будут пропущены", zap.String("symbol", symbol), zap.Error(errBook))
		orderBook = nil
	}

	return &symbolData{
		candles5m: candles5m,
		candles1m: candles1m,
		orderBook: orderBook,
	}, nil
}

// analyze строит разбор пары из сырых данных
func (s *Scanner) analyze(symbol string, data *symbolData) (*models.Analysis, error) {
	if len(data.candles5m) == 0 || len(data.candles1m) == 0 {
		return nil, fmt.Errorf("пустые серии свечей")
	}

	ind5m, err := s.indAnal.Calculate(data.candles5m)
	if err != nil {
		return nil, fmt.Errorf("индикаторы 5m: %w", err)
	}

	ind1m, err := s.indAnal.CalculateConfirmation(data.candles1m)
	if err != nil {
		return nil, fmt.Errorf("индикаторы 1m: %w", err)
	}

	last := data.candles5m[len(data.candles5m)-1]

	support, resistance := s.srAnal.FindLevels(data.orderBook, last.Close)

	return &models.Analysis{
		Symbol:       symbol,
		Price:        last.Close,
		Timestamp:    last.OpenTime,
		Indicators5m: ind5m,
		Indicators1m: ind1m,
		Patterns:     s.patterns.Detect(data.candles5m),
		Support:      support,
		Resistance:   resistance,
		Volume:       last.Volume,
	}, nil
}
