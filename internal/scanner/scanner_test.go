package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePairSource struct {
	pairs []string
	err   error
}

func (f *fakePairSource) GetLiquidPairs(ctx context.Context) ([]string, error) {
	return f.pairs, f.err
}

type fakeDataClient struct {
	failKlines map[string]bool
	bookErr    bool
	book       *models.OrderBook
}

func (f *fakeDataClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	if f.failKlines[symbol] {
		return nil, errors.New("свечи недоступны")
	}
	if interval == exchange.Interval1m {
		return risingCandles(limit, 100), nil
	}
	candles := risingCandles(limit, 100)
	candles[len(candles)-1].Volume = 250
	return candles, nil
}

func (f *fakeDataClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	if f.bookErr {
		return nil, errors.New("стакан недоступен")
	}
	return f.book, nil
}

// risingCandles восходящая серия бычьих свечей без разворотных паттернов
func risingCandles(n int, volume float64) []*models.Candle {
	candles := make([]*models.Candle, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		candles[i] = &models.Candle{
			OpenTime: time.Unix(int64(1700000000+i*300), 0),
			Open:     base,
			High:     base + 1.1,
			Low:      base - 0.1,
			Close:    base + 1,
			Volume:   volume,
		}
	}
	return candles
}

func scannerConfigs() (config.ScannerConfig, config.SignalConfig) {
	scan := config.ScannerConfig{
		MinVolumeUSDT:  50_000_000,
		OrderBookDepth: 20,
	}
	sig := config.SignalConfig{
		MinScore:          5,
		EMAFast:           9,
		EMAMedium:         21,
		EMASlow:           50,
		RSIPeriod:         14,
		RSILongMin:        50,
		RSILongMax:        65,
		RSIShortMin:       35,
		RSIShortMax:       50,
		ATRPeriod:         14,
		VolumeSMA:         20,
		SRDistancePercent: 2.0,
		SRClosePercent:    0.5,
	}
	return scan, sig
}

func TestScanUptrendSignal(t *testing.T) {
	scanCfg, sigCfg := scannerConfigs()
	client := &fakeDataClient{bookErr: true}
	s := NewScanner(client, &fakePairSource{pairs: []string{"BTCUSDT"}}, scanCfg, sigCfg)

	signals, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	// Восходящий тренд: EMA9 > EMA21 > EMA50, цена выше EMA21,
	// последний объем 250 против среднего 107.5, RSI 1m равен 100.
	// RSI 5m на отметке 100 выпадает из зоны, паттернов и уровней нет
	signal := signals[0]
	assert.Equal(t, "BTCUSDT", signal.Symbol)
	assert.Equal(t, models.DirectionLong, signal.Direction)
	assert.Equal(t, 7, signal.Score)
	assert.Equal(t, models.StrengthStrong, signal.Strength)
	assert.Equal(t, 200.0, signal.Price)
	assert.Nil(t, signal.SRLevel)
	assert.Contains(t, signal.Details, "✓ EMA9 > EMA21")
	assert.Contains(t, signal.Details, "✓✓ Perfect EMA alignment")
	assert.Contains(t, signal.Details, "✓ M1 confirmation (RSI: 100.0)")
}

func TestScanNearSupportLevel(t *testing.T) {
	scanCfg, sigCfg := scannerConfigs()
	client := &fakeDataClient{
		book: &models.OrderBook{
			Bids: []models.OrderBookLevel{{Price: "200.00", Amount: "5"}},
		},
	}
	s := NewScanner(client, &fakePairSource{pairs: []string{"BTCUSDT"}}, scanCfg, sigCfg)

	signals, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	// Поддержка на цене закрытия добавляет балл к семи трендовым
	signal := signals[0]
	assert.Equal(t, 8, signal.Score)
	require.NotNil(t, signal.SRLevel)
	assert.Equal(t, 200.0, signal.SRLevel.Price)
}

func TestScanSkipsFailedPair(t *testing.T) {
	scanCfg, sigCfg := scannerConfigs()
	client := &fakeDataClient{
		bookErr:    true,
		failKlines: map[string]bool{"BADUSDT": true},
	}
	s := NewScanner(client, &fakePairSource{pairs: []string{"BADUSDT", "BTCUSDT"}}, scanCfg, sigCfg)

	signals, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "BTCUSDT", signals[0].Symbol)
}

func TestScanPairSourceError(t *testing.T) {
	scanCfg, sigCfg := scannerConfigs()
	s := NewScanner(&fakeDataClient{}, &fakePairSource{err: errors.New("биржа недоступна")}, scanCfg, sigCfg)

	signals, err := s.Scan(context.Background())
	assert.Error(t, err)
	assert.Nil(t, signals)
}

func TestScanCanceledContext(t *testing.T) {
	scanCfg, sigCfg := scannerConfigs()
	s := NewScanner(&fakeDataClient{bookErr: true}, &fakePairSource{pairs: []string{"BTCUSDT"}}, scanCfg, sigCfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
