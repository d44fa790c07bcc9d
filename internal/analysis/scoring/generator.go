package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/skalibog/screener/internal/analysis/patterns"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// strongScore балл, начиная с которого сигнал считается сильным
const strongScore = 7

// Generator оценивает разбор пары по фиксированному набору факторов
// и выдает направленный сигнал, если набран минимальный балл.
// Функция чистая: одинаковый разбор всегда дает одинаковый сигнал.
type Generator struct {
	config config.SignalConfig
}

// NewGenerator создает новый генератор сигналов
func NewGenerator(cfg config.SignalConfig) *Generator {
	return &Generator{
		config: cfg,
	}
}

// Generate оценивает LONG и SHORT независимо и возвращает победителя.
// LONG оценивается первым; SHORT вытесняет его только строго большим
// баллом, поэтому при точном равенстве выигрывает LONG.
func (g *Generator) Generate(analysis *models.Analysis) *models.Signal {
	if analysis == nil {
		return nil
	}

	long := g.evaluateLong(analysis)
	short := g.evaluateShort(analysis)

	if long != nil {
		if short != nil && short.Score > long.Score {
			return short
		}
		return long
	}

	return short
}

// evaluateLong набирает баллы за факторы в пользу LONG
func (g *Generator) evaluateLong(analysis *models.Analysis) *models.Signal {
	score := 0
	var details []string

	ind5m := analysis.Indicators5m
	ind1m := analysis.Indicators1m
	price := analysis.Price

	if ind5m.EMAFast > ind5m.EMAMedium {
		score++
		details = append(details, fmt.Sprintf("✓ EMA%d > EMA%d", g.config.EMAFast, g.config.EMAMedium))
	}

	if price > ind5m.EMAMedium {
		score++
		details = append(details, fmt.Sprintf("✓ Price > EMA%d", g.config.EMAMedium))
	}

	if ind5m.RSI >= g.config.RSILongMin && ind5m.RSI <= g.config.RSILongMax {
		score++
		details = append(details, fmt.Sprintf("✓ RSI in LONG zone (%.1f)", ind5m.RSI))
	}

	if ind5m.CurrentVolume > ind5m.VolumeSMA {
		score++
		volumeRatio := ind5m.CurrentVolume / ind5m.VolumeSMA
		details = append(details, fmt.Sprintf("✓ Volume above average (%.2fx)", volumeRatio))

		if volumeRatio >= 2.0 {
			score++
			details = append(details, fmt.Sprintf("✓✓ Strong volume (%.2fx)", volumeRatio))
		}
	}

	foundPatterns := intersect(analysis.Patterns, patterns.Bullish)
	if len(foundPatterns) > 0 {
		score++
		details = append(details, fmt.Sprintf("✓ Pattern: %s", strings.Join(foundPatterns, ", ")))
	}

	if ind1m.RSI > 50 {
		score++
		details = append(details, fmt.Sprintf("✓ M1 confirmation (RSI: %.1f)", ind1m.RSI))
	}

	nearSupport := g.nearLevel(price, analysis.Support, ind5m.ATR)
	if nearSupport != nil {
		score++
		details = append(details, fmt.Sprintf("✓ Near support: $%.2f", nearSupport.Price))
	}

	if ind5m.EMAFast > ind5m.EMAMedium && ind5m.EMAMedium > ind5m.EMASlow {
		score += 2
		details = append(details, "✓✓ Perfect EMA alignment")
	}

	if score < g.config.MinScore {
		return nil
	}

	return g.build(analysis, models.DirectionLong, score, details, foundPatterns, nearSupport)
}

// evaluateShort набирает баллы за факторы в пользу SHORT
func (g *Generator) evaluateShort(analysis *models.Analysis) *models.Signal {
	score := 0
	var details []string

	ind5m := analysis.Indicators5m
	ind1m := analysis.Indicators1m
	price := analysis.Price

	if ind5m.EMAFast < ind5m.EMAMedium {
		score++
		details = append(details, fmt.Sprintf("✓ EMA%d < EMA%d", g.config.EMAFast, g.config.EMAMedium))
	}

	if price < ind5m.EMAMedium {
		score++
		details = append(details, fmt.Sprintf("✓ Price < EMA%d", g.config.EMAMedium))
	}

	if ind5m.RSI >= g.config.RSIShortMin && ind5m.RSI <= g.config.RSIShortMax {
		score++
		details = append(details, fmt.Sprintf("✓ RSI in SHORT zone (%.1f)", ind5m.RSI))
	}

	if ind5m.CurrentVolume > ind5m.VolumeSMA {
		score++
		volumeRatio := ind5m.CurrentVolume / ind5m.VolumeSMA
		details = append(details, fmt.Sprintf("✓ Volume above average (%.2fx)", volumeRatio))

		if volumeRatio >= 2.0 {
			score++
			details = append(details, fmt.Sprintf("✓✓ Strong volume (%.2fx)", volumeRatio))
		}
	}

	foundPatterns := intersect(analysis.Patterns, patterns.Bearish)
	if len(foundPatterns) > 0 {
		score++
		details = append(details, fmt.Sprintf("✓ Pattern: %s", strings.Join(foundPatterns, ", ")))
	}

	if ind1m.RSI < 50 {
		score++
		details = append(details, fmt.Sprintf("✓ M1 confirmation (RSI: %.1f)", ind1m.RSI))
	}

	nearResistance := g.nearLevel(price, analysis.Resistance, ind5m.ATR)
	if nearResistance != nil {
		score++
		details = append(details, fmt.Sprintf("✓ Near resistance: $%.2f", nearResistance.Price))
	}

	if ind5m.EMAFast < ind5m.EMAMedium && ind5m.EMAMedium < ind5m.EMASlow {
		score += 2
		details = append(details, "✓✓ Perfect EMA alignment")
	}

	if score < g.config.MinScore {
		return nil
	}

	return g.build(analysis, models.DirectionShort, score, details, foundPatterns, nearResistance)
}

// build собирает итоговый сигнал. Балл ограничивается сверху MaxScore:
// при стандартных весах сырой максимум и так равен 10, ограничение
// срабатывает только на нестандартных конфигурациях.
func (g *Generator) build(analysis *models.Analysis, direction string, score int, details, foundPatterns []string, level *models.SRLevel) *models.Signal {
	if score > models.MaxScore {
		score = models.MaxScore
	}

	strength := models.StrengthMedium
	if score >= strongScore {
		strength = models.StrengthStrong
	}

	return &models.Signal{
		Symbol:       analysis.Symbol,
		Direction:    direction,
		Strength:     strength,
		Score:        score,
		MaxScore:     models.MaxScore,
		Price:        analysis.Price,
		Details:      details,
		Indicators5m: analysis.Indicators5m,
		Indicators1m: analysis.Indicators1m,
		Patterns:     foundPatterns,
		SRLevel:      level,
		Timestamp:    analysis.Timestamp,
	}
}

// nearLevel возвращает первый уровень в пределах порога, привязанного к ATR
func (g *Generator) nearLevel(price float64, levels []models.SRLevel, atr float64) *models.SRLevel {
	threshold := atr * g.config.SRClosePercent / 100

	for i := range levels {
		if math.Abs(price-levels[i].Price) <= threshold {
			return &levels[i]
		}
	}

	return nil
}

// intersect возвращает паттерны из found, входящие в wanted, сохраняя порядок
func intersect(found, wanted []string) []string {
	var result []string
	for _, p := range found {
		for _, w := range wanted {
			if p == w {
				result = append(result, p)
				break
			}
		}
	}
	return result
}
