package patterns

import (
	"math"

	"github.com/skalibog/screener/pkg/models"
)

// Имена свечных паттернов
const (
	Hammer           = "Hammer"
	ShootingStar     = "Shooting Star"
	BullishEngulfing = "Bullish Engulfing"
	BearishEngulfing = "Bearish Engulfing"
	MorningStar      = "Morning Star"
	EveningStar      = "Evening Star"
)

// Bullish паттерны разворота вверх
var Bullish = []string{Hammer, BullishEngulfing, MorningStar}

// Bearish паттерны разворота вниз
var Bearish = []string{ShootingStar, BearishEngulfing, EveningStar}

// Detector классифицирует последние свечи серии по именованным
// разворотным паттернам. Детекция чисто геометрическая, по сырым OHLC.
type Detector struct{}

// NewDetector создает новый детектор паттернов
func NewDetector() *Detector {
	return &Detector{}
}

// Detect возвращает все паттерны, найденные на последних трех свечах.
// Серия короче трех свечей дает пустой набор. Одна свеча может
// участвовать в нескольких паттернах одновременно.
func (d *Detector) Detect(candles []*models.Candle) []string {
	var found []string

	if len(candles) < 3 {
		return found
	}

	c1 := candles[len(candles)-3]
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	if isHammer(c3) {
		found = append(found, Hammer)
	}
	if isBullishEngulfing(c2, c3) {
		found = append(found, BullishEngulfing)
	}
	if isMorningStar(c1, c2, c3) {
		found = append(found, MorningStar)
	}
	if isShootingStar(c3) {
		found = append(found, ShootingStar)
	}
	if isBearishEngulfing(c2, c3) {
		found = append(found, BearishEngulfing)
	}
	if isEveningStar(c1, c2, c3) {
		found = append(found, EveningStar)
	}

	return found
}

// isHammer молот: длинная нижняя тень, короткая верхняя, бычье закрытие
func isHammer(c *models.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	lowerShadow := math.Min(c.Open, c.Close) - c.Low
	upperShadow := c.High - math.Max(c.Open, c.Close)

	return lowerShadow > body*2 &&
		upperShadow < body*0.3 &&
		c.Close > c.Open
}

// isShootingStar падающая звезда: зеркало молота
func isShootingStar(c *models.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	upperShadow := c.High - math.Max(c.Open, c.Close)
	lowerShadow := math.Min(c.Open, c.Close) - c.Low

	return upperShadow > body*2 &&
		lowerShadow < body*0.3 &&
		c.Close < c.Open
}

// isBullishEngulfing бычье поглощение: бычья свеча накрывает тело медвежьей
func isBullishEngulfing(c1, c2 *models.Candle) bool {
	return c1.Close < c1.Open &&
		c2.Close > c2.Open &&
		c2.Open < c1.Close &&
		c2.Close > c1.Open
}

// isBearishEngulfing медвежье поглощение
func isBearishEngulfing(c1, c2 *models.Candle) bool {
	return c1.Close > c1.Open &&
		c2.Close < c2.Open &&
		c2.Open > c1.Close &&
		c2.Close < c1.Open
}

// isMorningStar утренняя звезда: медвежья свеча, маленькое тело,
// бычья свеча с закрытием выше середины первого тела
func isMorningStar(c1, c2, c3 *models.Candle) bool {
	body1 := math.Abs(c1.Close - c1.Open)
	body2 := math.Abs(c2.Close - c2.Open)

	return c1.Close < c1.Open &&
		body2 < body1*0.3 &&
		c3.Close > c3.Open &&
		c3.Close > (c1.Open+c1.Close)/2
}

// isEveningStar вечерняя звезда: зеркало утренней
func isEveningStar(c1, c2, c3 *models.Candle) bool {
	body1 := math.Abs(c1.Close - c1.Open)
	body2 := math.Abs(c2.Close - c2.Open)

	return c1.Close > c1.Open &&
		body2 < body1*0.3 &&
		c3.Close < c3.Open &&
		c3.Close < (c1.Open+c1.Close)/2
}
