package srlevels

import (
	"math"
	"sort"
	"strconv"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// maxLevels сколько уровней каждой стороны попадает в результат
const maxLevels = 3

// Analyzer извлекает уровни поддержки и сопротивления из концентрации
// объема в стакане заявок
type Analyzer struct {
	config config.SignalConfig
}

// NewAnalyzer создает новый экстрактор уровней
func NewAnalyzer(cfg config.SignalConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// FindLevels агрегирует заявки в ценовые уровни: берутся заявки в полосе
// вокруг текущей цены, цены округляются до двух знаков, объемы на уровне
// суммируются, и остаются три самых крупных уровня каждой стороны.
// Отсутствующий стакан дает пустые списки, это не ошибка.
func (a *Analyzer) FindLevels(book *models.OrderBook, currentPrice float64) (support, resistance []models.SRLevel) {
	if book == nil {
		return nil, nil
	}

	priceRange := currentPrice * a.config.SRDistancePercent / 100

	support = aggregate(book.Bids, currentPrice, priceRange)
	resistance = aggregate(book.Asks, currentPrice, priceRange)

	return support, resistance
}

// aggregate складывает объемы заявок по округленным ценовым уровням
// и возвращает крупнейшие уровни по убыванию объема. При равных объемах
// выигрывает уровень, встреченный в стакане раньше.
func aggregate(levels []models.OrderBookLevel, currentPrice, priceRange float64) []models.SRLevel {
	volumes := make(map[float64]float64)
	var order []float64

	for _, l := range levels {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			logger.Warn("Ошибка парсинга цены уровня стакана", zap.String("price", l.Price), zap.Error(err))
			continue
		}
		amount, err := strconv.ParseFloat(l.Amount, 64)
		if err != nil {
			logger.Warn("Ошибка парсинга объема уровня стакана", zap.String("amount", l.Amount), zap.Error(err))
			continue
		}

		if math.Abs(price-currentPrice) > priceRange {
			continue
		}

		bucket := math.Round(price*100) / 100
		if _, seen := volumes[bucket]; !seen {
			order = append(order, bucket)
		}
		volumes[bucket] += amount
	}

	result := make([]models.SRLevel, 0, len(order))
	for _, bucket := range order {
		result = append(result, models.SRLevel{Price: bucket, Size: volumes[bucket]})
	}

	// Стабильная сортировка сохраняет порядок первого появления при равных объемах
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Size > result[j].Size
	})

	if len(result) > maxLevels {
		result = result[:maxLevels]
	}

	return result
}
