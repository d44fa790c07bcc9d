package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Analyzer рассчитывает снимок технических индикаторов по серии свечей
type Analyzer struct {
	config config.SignalConfig
}

// NewAnalyzer создает новый расчетчик индикаторов
func NewAnalyzer(cfg config.SignalConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Calculate рассчитывает полный набор индикаторов: EMA 9/21/50, RSI, ATR
// и скользящую среднюю объема. Берутся только последние значения серий.
// Серия короче окна медленной EMA считается недостаточной.
func (a *Analyzer) Calculate(candles []*models.Candle) (*models.IndicatorSet, error) {
	if len(candles) < a.config.EMASlow {
		return nil, fmt.Errorf("недостаточно данных для расчета индикаторов: %d свечей (требуется %d)",
			len(candles), a.config.EMASlow)
	}

	closes, highs, lows, volumes := unpack(candles)

	emaFast := talib.Ema(closes, a.config.EMAFast)
	emaMedium := talib.Ema(closes, a.config.EMAMedium)
	emaSlow := talib.Ema(closes, a.config.EMASlow)
	rsi := talib.Rsi(closes, a.config.RSIPeriod)
	atr := talib.Atr(highs, lows, closes, a.config.ATRPeriod)
	volumeSMA := talib.Sma(volumes, a.config.VolumeSMA)

	return &models.IndicatorSet{
		EMAFast:       emaFast[len(emaFast)-1],
		EMAMedium:     emaMedium[len(emaMedium)-1],
		EMASlow:       emaSlow[len(emaSlow)-1],
		RSI:           rsi[len(rsi)-1],
		ATR:           atr[len(atr)-1],
		VolumeSMA:     volumeSMA[len(volumeSMA)-1],
		CurrentVolume: volumes[len(volumes)-1],
	}, nil
}

// CalculateConfirmation рассчитывает укороченный набор для подтверждающего
// таймфрейма: из него потребляется только RSI, поэтому серии достаточно
// покрыть окно RSI. Поля EMA и ATR остаются нулевыми.
func (a *Analyzer) CalculateConfirmation(candles []*models.Candle) (*models.IndicatorSet, error) {
	if len(candles) <= a.config.RSIPeriod {
		return nil, fmt.Errorf("недостаточно данных для расчета RSI: %d свечей (требуется %d)",
			len(candles), a.config.RSIPeriod+1)
	}

	closes, _, _, volumes := unpack(candles)

	rsi := talib.Rsi(closes, a.config.RSIPeriod)

	set := &models.IndicatorSet{
		RSI:           rsi[len(rsi)-1],
		CurrentVolume: volumes[len(volumes)-1],
	}

	if len(volumes) >= a.config.VolumeSMA {
		volumeSMA := talib.Sma(volumes, a.config.VolumeSMA)
		set.VolumeSMA = volumeSMA[len(volumeSMA)-1]
	}

	return set, nil
}

// unpack раскладывает свечи на ряды для talib
func unpack(candles []*models.Candle) (closes, highs, lows, volumes []float64) {
	closes = make([]float64, len(candles))
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	volumes = make([]float64, len(candles))

	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	return closes, highs, lows, volumes
}
