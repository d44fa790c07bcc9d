package bot

import (
	"fmt"
	"math"
	"strings"

	"github.com/skalibog/screener/pkg/models"
)

// strengthLabel человекочитаемое название силы сигнала
func strengthLabel(strength string) string {
	if strength == models.StrengthStrong {
		return "СИЛЬНЫЙ"
	}
	return "СРЕДНИЙ"
}

// formatSignal рендерит сигнал в HTML-сообщение Telegram
func formatSignal(s *models.Signal) string {
	directionEmoji := "🟢"
	if s.Direction == models.DirectionShort {
		directionEmoji = "🔴"
	}
	strengthEmoji := "📊"
	if s.Strength == models.StrengthStrong {
		strengthEmoji = "⚡"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s SIGNAL</b> %s\n", directionEmoji, s.Direction, strengthEmoji)
	fmt.Fprintf(&b, "<b>Пара:</b> %s\n", s.Symbol)
	fmt.Fprintf(&b, "<b>Сила:</b> %s (%d/%d)\n", strengthLabel(s.Strength), s.Score, s.MaxScore)
	fmt.Fprintf(&b, "<b>Цена:</b> $%.4f\n", s.Price)
	b.WriteString("━━━━━━━━━━━━━━━━━━\n\n")

	ind5m := s.Indicators5m
	b.WriteString("📊 <b>Индикаторы M5:</b>\n")
	fmt.Fprintf(&b, "• EMA9: $%.2f\n", ind5m.EMAFast)
	fmt.Fprintf(&b, "• EMA21: $%.2f\n", ind5m.EMAMedium)
	fmt.Fprintf(&b, "• EMA50: $%.2f\n", ind5m.EMASlow)
	fmt.Fprintf(&b, "• RSI: %.1f\n", ind5m.RSI)
	fmt.Fprintf(&b, "• ATR: $%.2f\n", ind5m.ATR)

	if ind5m.VolumeSMA > 0 {
		volumeRatio := ind5m.CurrentVolume / ind5m.VolumeSMA
		fmt.Fprintf(&b, "• Volume: %s (%.2fx avg)\n\n", formatVolume(ind5m.CurrentVolume), volumeRatio)
	} else {
		fmt.Fprintf(&b, "• Volume: %s\n\n", formatVolume(ind5m.CurrentVolume))
	}

	b.WriteString("⚡ <b>Подтверждение M1:</b>\n")
	fmt.Fprintf(&b, "• RSI: %.1f\n\n", s.Indicators1m.RSI)

	if len(s.Patterns) > 0 {
		fmt.Fprintf(&b, "🕯 <b>Паттерны:</b> %s\n\n", strings.Join(s.Patterns, ", "))
	}

	if s.SRLevel != nil {
		levelType := "Support"
		if s.Direction == models.DirectionShort {
			levelType = "Resistance"
		}
		fmt.Fprintf(&b, "📍 <b>%s:</b> $%.2f (vol: %s)\n\n", levelType, s.SRLevel.Price, formatVolume(s.SRLevel.Size))
	}

	b.WriteString("<b>🎯 Детали сигнала:</b>\n")
	for _, detail := range s.Details {
		b.WriteString(detail)
		b.WriteByte('\n')
	}

	b.WriteString("\n━━━━━━━━━━━━━━━━━━\n")
	b.WriteString(tradeRecommendations(s))

	fmt.Fprintf(&b, "\n\n<i>⏰ %s</i>", s.Timestamp.Format("15:04:05"))

	return b.String()
}

// tradeRecommendations рассчитывает уровни входа по ATR
func tradeRecommendations(s *models.Signal) string {
	price := s.Price
	atr := s.Indicators5m.ATR

	var stopLoss, tp1, tp2, tp3 float64
	if s.Direction == models.DirectionLong {
		stopLoss = price - atr*1.5
		tp1 = price + atr*2
		tp2 = price + atr*3
		tp3 = price + atr*4
	} else {
		stopLoss = price + atr*1.5
		tp1 = price - atr*2
		tp2 = price - atr*3
		tp3 = price - atr*4
	}

	risk := math.Abs(price - stopLoss)
	rrRatio := 0.0
	if risk > 0 {
		rrRatio = math.Abs(tp1-price) / risk
	}

	var b strings.Builder
	b.WriteString("<b>💡 Рекомендации для входа:</b>\n")
	fmt.Fprintf(&b, "• Entry: $%.4f\n", price)
	fmt.Fprintf(&b, "• Stop Loss: $%.4f\n", stopLoss)
	fmt.Fprintf(&b, "• Take Profit 1: $%.4f (50%%)\n", tp1)
	fmt.Fprintf(&b, "• Take Profit 2: $%.4f (30%%)\n", tp2)
	fmt.Fprintf(&b, "• Take Profit 3: $%.4f (20%%)\n", tp3)
	fmt.Fprintf(&b, "• Risk/Reward: 1:%.2f\n", rrRatio)

	return b.String()
}

// formatSummary рендерит сводку прохода
func formatSummary(summary *models.ScanSummary) string {
	var b strings.Builder

	b.WriteString("🔍 <b>Сканирование завершено</b>\n\n")
	fmt.Fprintf(&b, "⏱ Время: %.2fс\n", summary.Elapsed.Seconds())
	fmt.Fprintf(&b, "📊 Найдено сигналов: %d\n", summary.Signals)

	if summary.Signals > 0 {
		fmt.Fprintf(&b, "🟢 LONG: %d\n", summary.Longs)
		fmt.Fprintf(&b, "🔴 SHORT: %d\n", summary.Shorts)
	}

	return b.String()
}

// formatError рендерит отчет об ошибке цикла
func formatError(err error) string {
	return fmt.Sprintf("❌ <b>Ошибка</b>\n\n<code>%s</code>\n", err)
}

// formatVolume сокращает объем до K/M/B
func formatVolume(volume float64) string {
	switch {
	case volume >= 1_000_000_000:
		return fmt.Sprintf("$%.2fB", volume/1_000_000_000)
	case volume >= 1_000_000:
		return fmt.Sprintf("$%.2fM", volume/1_000_000)
	case volume >= 1_000:
		return fmt.Sprintf("$%.2fK", volume/1_000)
	default:
		return fmt.Sprintf("$%.2f", volume)
	}
}
