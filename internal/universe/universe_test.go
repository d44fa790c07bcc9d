package universe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarketClient struct {
	markets     []models.Market
	volumes     map[string]float64
	failTickers map[string]bool
	listErr     error

	listCalls   atomic.Int64
	tickerCalls atomic.Int64
}

func (f *fakeMarketClient) ListMarkets(ctx context.Context) ([]models.Market, error) {
	f.listCalls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.markets, nil
}

func (f *fakeMarketClient) FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	f.tickerCalls.Add(1)
	if f.failTickers[symbol] {
		return nil, errors.New("тикер недоступен")
	}
	return &models.Ticker{Symbol: symbol, QuoteVolume: f.volumes[symbol]}, nil
}

type failingMarketClient struct{}

func (failingMarketClient) ListMarkets(ctx context.Context) ([]models.Market, error) {
	return nil, errors.New("биржа недоступна")
}

func (failingMarketClient) FetchTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	return nil, errors.New("биржа недоступна")
}

func universeConfig() config.ScannerConfig {
	return config.ScannerConfig{
		MinVolumeUSDT:   50_000_000,
		PairsCacheHours: 1,
	}
}

func perp(symbol string) models.Market {
	return models.Market{Symbol: symbol, QuoteAsset: "USDT", ContractType: "PERPETUAL", Active: true}
}

func TestGetLiquidPairsFiltering(t *testing.T) {
	client := &fakeMarketClient{
		markets: []models.Market{
			perp("BTCUSDT"),
			perp("ETHUSDT"),
			{Symbol: "BTCUSDT_240927", QuoteAsset: "USDT", ContractType: "CURRENT_QUARTER", Active: true},
			{Symbol: "BTCBUSD", QuoteAsset: "BUSD", ContractType: "PERPETUAL", Active: true},
			{Symbol: "DOGEUSDT", QuoteAsset: "USDT", ContractType: "PERPETUAL", Active: false},
			perp("SOLUSDT"),
		},
		volumes: map[string]float64{
			"BTCUSDT": 900_000_000,
			"ETHUSDT": 10_000_000,
			"SOLUSDT": 60_000_000,
		},
	}

	s := NewService(client, universeConfig())

	pairs, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, pairs)
}

func TestGetLiquidPairsInclusiveThreshold(t *testing.T) {
	client := &fakeMarketClient{
		markets: []models.Market{perp("BTCUSDT"), perp("ETHUSDT")},
		volumes: map[string]float64{
			"BTCUSDT": 50_000_000,
			"ETHUSDT": 49_999_999.99,
		},
	}

	s := NewService(client, universeConfig())

	pairs, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, pairs)
}

func TestGetLiquidPairsPreservesMarketOrder(t *testing.T) {
	symbols := []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT"}
	client := &fakeMarketClient{volumes: map[string]float64{}}
	for _, sym := range symbols {
		client.markets = append(client.markets, perp(sym))
		client.volumes[sym] = 100_000_000
	}

	s := NewService(client, universeConfig())

	pairs, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, symbols, pairs)
}

func TestGetLiquidPairsTickerFailureMeansIlliquid(t *testing.T) {
	client := &fakeMarketClient{
		markets: []models.Market{perp("BTCUSDT"), perp("ETHUSDT")},
		volumes: map[string]float64{
			"BTCUSDT": 100_000_000,
			"ETHUSDT": 100_000_000,
		},
		failTickers: map[string]bool{"ETHUSDT": true},
	}

	s := NewService(client, universeConfig())

	pairs, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, pairs)
}

func TestGetLiquidPairsCached(t *testing.T) {
	client := &fakeMarketClient{
		markets: []models.Market{perp("BTCUSDT")},
		volumes: map[string]float64{"BTCUSDT": 100_000_000},
	}

	s := NewService(client, universeConfig())

	base := time.Unix(1700000000, 0)
	current := base
	s.now = func() time.Time { return current }

	first, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)

	// Внутри TTL биржа не опрашивается
	current = base.Add(30 * time.Minute)
	second, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), client.listCalls.Load())
	assert.Equal(t, int64(1), client.tickerCalls.Load())

	// После истечения TTL список строится заново
	current = base.Add(61 * time.Minute)
	_, err = s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), client.listCalls.Load())
}

func TestGetLiquidPairsDeriveErrorNotFatal(t *testing.T) {
	s := NewService(failingMarketClient{}, universeConfig())

	// Без кэша ошибка перестроения дает пустой список, а не ошибку цикла
	pairs, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestGetLiquidPairsStaleCacheOnDeriveError(t *testing.T) {
	client := &fakeMarketClient{
		markets: []models.Market{perp("BTCUSDT")},
		volumes: map[string]float64{"BTCUSDT": 100_000_000},
	}

	s := NewService(client, universeConfig())

	base := time.Unix(1700000000, 0)
	current := base
	s.now = func() time.Time { return current }

	first, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"BTCUSDT"}, first)

	// После истечения TTL биржа недоступна: отдается устаревший кэш
	client.listErr = errors.New("биржа недоступна")
	current = base.Add(2 * time.Hour)

	pairs, err := s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, pairs)

	// Кэш не обновлен, следующий вызов пробует перестроить снова
	client.listErr = nil
	_, err = s.GetLiquidPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), client.listCalls.Load())
}
