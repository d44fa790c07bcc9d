package models

import (
	"time"
)

// Направления сигнала
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Сила сигнала
const (
	StrengthStrong = "STRONG"
	StrengthMedium = "MEDIUM"
)

// MaxScore максимальный балл сигнала
const MaxScore = 10

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Market представляет описание рынка с биржи
type Market struct {
	Symbol       string
	QuoteAsset   string
	ContractType string
	Active       bool
}

// Ticker представляет 24-часовую статистику по символу
type Ticker struct {
	Symbol      string
	LastPrice   float64
	QuoteVolume float64
}

// OrderBookLevel представляет уровень стакана
type OrderBookLevel struct {
	Price  string
	Amount string
}

// OrderBook представляет стакан заявок
type OrderBook struct {
	Symbol    string
	Timestamp time.Time
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
}

// IndicatorSet представляет снимок индикаторов по последней свече серии
type IndicatorSet struct {
	EMAFast       float64
	EMAMedium     float64
	EMASlow       float64
	RSI           float64
	ATR           float64
	VolumeSMA     float64
	CurrentVolume float64
}

// SRLevel представляет уровень поддержки или сопротивления,
// агрегированный из стакана заявок
type SRLevel struct {
	Price float64
	Size  float64
}

// Analysis представляет полный разбор одной пары за один цикл сканирования
type Analysis struct {
	Symbol       string
	Price        float64
	Timestamp    time.Time
	Indicators5m *IndicatorSet
	Indicators1m *IndicatorSet
	Patterns     []string
	Support      []SRLevel
	Resistance   []SRLevel
	Volume       float64
}

// Signal представляет торговый сигнал по одной паре
type Signal struct {
	Symbol       string
	Direction    string
	Strength     string
	Score        int
	MaxScore     int
	Price        float64
	Details      []string
	Indicators5m *IndicatorSet
	Indicators1m *IndicatorSet
	Patterns     []string
	SRLevel      *SRLevel
	Timestamp    time.Time
}

// ScanSummary представляет итоги одного прохода сканирования
type ScanSummary struct {
	Signals   int
	Longs     int
	Shorts    int
	Elapsed   time.Duration
	Timestamp time.Time
}
