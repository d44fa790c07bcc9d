package indicators

import (
	"testing"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigConfig() config.SignalConfig {
	return config.SignalConfig{
		EMAFast:   9,
		EMAMedium: 21,
		EMASlow:   50,
		RSIPeriod: 14,
		ATRPeriod: 14,
		VolumeSMA: 20,
	}
}

// flatCandles свечи без движения цены: open=close=100, high=105, low=95
func flatCandles(n int, volume float64) []*models.Candle {
	candles := make([]*models.Candle, n)
	for i := range candles {
		candles[i] = &models.Candle{Open: 100, High: 105, Low: 95, Close: 100, Volume: volume}
	}
	return candles
}

// risingCandles свечи с ростом закрытия на 1 каждый шаг
func risingCandles(n int, volume float64) []*models.Candle {
	candles := make([]*models.Candle, n)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = &models.Candle{Open: c - 1, High: c + 0.1, Low: c - 1.1, Close: c, Volume: volume}
	}
	return candles
}

func TestCalculateInsufficientData(t *testing.T) {
	a := NewAnalyzer(sigConfig())

	// Серия короче окна медленной EMA не дает частичного результата
	set, err := a.Calculate(flatCandles(49, 1000))
	require.Error(t, err)
	assert.Nil(t, set)

	set, err = a.Calculate(nil)
	require.Error(t, err)
	assert.Nil(t, set)
}

func TestCalculateConstantSeries(t *testing.T) {
	a := NewAnalyzer(sigConfig())

	set, err := a.Calculate(flatCandles(60, 1000))
	require.NoError(t, err)

	// EMA константной серии равна самой константе: сглаживание
	// затравливается SMA первых N значений
	assert.InDelta(t, 100, set.EMAFast, 1e-9)
	assert.InDelta(t, 100, set.EMAMedium, 1e-9)
	assert.InDelta(t, 100, set.EMASlow, 1e-9)

	// Истинный диапазон постоянен, сглаживание Уайлдера его не меняет
	assert.InDelta(t, 10, set.ATR, 1e-9)

	assert.InDelta(t, 1000, set.VolumeSMA, 1e-9)
	assert.InDelta(t, 1000, set.CurrentVolume, 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	a := NewAnalyzer(sigConfig())

	// Серия без единого снижения дает RSI ровно 100
	set, err := a.Calculate(risingCandles(60, 1000))
	require.NoError(t, err)
	assert.InDelta(t, 100, set.RSI, 1e-9)

	// Серия без единого роста дает RSI ровно 0
	falling := make([]*models.Candle, 60)
	for i := range falling {
		c := 200 - float64(i)
		falling[i] = &models.Candle{Open: c + 1, High: c + 1.1, Low: c - 0.1, Close: c, Volume: 1000}
	}
	set, err = a.Calculate(falling)
	require.NoError(t, err)
	assert.InDelta(t, 0, set.RSI, 1e-9)
}

func TestCalculateConfirmation(t *testing.T) {
	a := NewAnalyzer(sigConfig())

	// 20 свечей достаточно для подтверждающего набора
	set, err := a.CalculateConfirmation(risingCandles(20, 500))
	require.NoError(t, err)

	assert.InDelta(t, 100, set.RSI, 1e-9)
	assert.InDelta(t, 500, set.CurrentVolume, 1e-9)
	assert.InDelta(t, 500, set.VolumeSMA, 1e-9)

	// Поля EMA и ATR не рассчитываются для подтверждающего таймфрейма
	assert.Zero(t, set.EMAFast)
	assert.Zero(t, set.EMAMedium)
	assert.Zero(t, set.EMASlow)
	assert.Zero(t, set.ATR)
}

func TestCalculateConfirmationInsufficientData(t *testing.T) {
	a := NewAnalyzer(sigConfig())

	set, err := a.CalculateConfirmation(risingCandles(14, 500))
	require.Error(t, err)
	assert.Nil(t, set)
}
