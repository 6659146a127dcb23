package models

import (
	"math"
	"time"
)

// SignalType is the direction of a trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// Signal is one emitted trading signal. Primary key in the store is
// (SignalTime, InstrumentKey); re-inserts of the same key are dropped there.
type Signal struct {
	SignalTime    time.Time
	InstrumentKey string
	Type          SignalType
	LTP           float64
	RSI           float64
	MACD          float64
	ATR           float64
}

// IndicatorFrame holds indicator columns aligned index-for-index with the
// PriceSeries they were computed from. Entries before each indicator's
// warm-up window are NaN, never zero.
type IndicatorFrame struct {
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	ATR        []float64
}

func (f *IndicatorFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.RSI)
}

// Empty reports whether the frame has no defined values at all.
func (f *IndicatorFrame) Empty() bool {
	if f.Len() == 0 {
		return true
	}
	for _, v := range f.RSI {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
