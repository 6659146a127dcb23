package analytics

import (
	"math"
	"testing"

	"PromptTrader/internal/domain/models"
)

// mkFrame builds an aligned frame with every column fully defined: RSI
// neutral, MACD flat below its signal line, ATR constant. Tests then poke
// the few indices they care about.
func mkFrame(n int) *models.IndicatorFrame {
	f := &models.IndicatorFrame{
		RSI:        make([]float64, n),
		MACD:       make([]float64, n),
		MACDSignal: make([]float64, n),
		ATR:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f.RSI[i] = 50
		f.MACD[i] = -1
		f.MACDSignal[i] = 0
		f.ATR[i] = 1
	}
	return f
}

func TestGenerateSignalsBuyOnUpcross(t *testing.T) {
	n := 20
	series := flatSeries(n, 200)
	frame := mkFrame(n)

	cross := 15
	frame.RSI[cross] = 25
	for i := cross; i < n; i++ {
		frame.MACD[i] = 1
	}
	frame.ATR[cross] = 2 // above the trailing median of 1

	signals := GenerateSignals(series, frame)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	sig := signals[0]
	if sig.Type != models.SignalBuy {
		t.Fatalf("expected BUY, got %s", sig.Type)
	}
	if !sig.SignalTime.Equal(series.Bars[cross].Time) {
		t.Fatalf("signal time %v, want bar time %v", sig.SignalTime, series.Bars[cross].Time)
	}
	if sig.LTP != series.Bars[cross].Close {
		t.Fatalf("signal ltp %v, want %v", sig.LTP, series.Bars[cross].Close)
	}
	if sig.InstrumentKey != series.InstrumentKey {
		t.Fatalf("signal key %q", sig.InstrumentKey)
	}
}

func TestGenerateSignalsSellOnDowncross(t *testing.T) {
	n := 20
	series := flatSeries(n, 200)
	frame := mkFrame(n)

	cross := 16
	for i := 0; i < cross; i++ {
		frame.MACD[i] = 1
	}
	for i := cross; i < n; i++ {
		frame.MACD[i] = -1
	}
	frame.RSI[cross] = 75
	frame.ATR[cross] = 2

	signals := GenerateSignals(series, frame)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].Type != models.SignalSell {
		t.Fatalf("expected SELL, got %s", signals[0].Type)
	}
}

func TestSustainedCrossFiresOnce(t *testing.T) {
	n := 25
	series := flatSeries(n, 200)
	frame := mkFrame(n)

	cross := 15
	for i := cross; i < n; i++ {
		frame.MACD[i] = 1
		frame.RSI[i] = 25
		frame.ATR[i] = 2 + float64(i-cross) // keeps the gate passing after the cross
	}

	signals := GenerateSignals(series, frame)
	if len(signals) != 1 {
		t.Fatalf("sustained condition fired %d times, want 1", len(signals))
	}
}

func TestVolatilityGateBlocksFlatATR(t *testing.T) {
	n := 20
	series := flatSeries(n, 200)
	frame := mkFrame(n)

	cross := 15
	frame.RSI[cross] = 25
	for i := cross; i < n; i++ {
		frame.MACD[i] = 1
	}
	// ATR stays 1 everywhere: equal to the median, never above it

	if signals := GenerateSignals(series, frame); len(signals) != 0 {
		t.Fatalf("gate let through %d signals on flat ATR", len(signals))
	}
}

func TestVolatilityGateNeedsFullWindow(t *testing.T) {
	n := 16
	series := flatSeries(n, 200)
	frame := mkFrame(n)

	cross := 10
	frame.RSI[cross] = 25
	for i := cross; i < n; i++ {
		frame.MACD[i] = 1
	}
	frame.ATR[cross] = 5
	// NaN inside the trailing window cuts it short of ATRMedianWindow
	for i := 0; i < 3; i++ {
		frame.ATR[i] = math.NaN()
	}

	if signals := GenerateSignals(series, frame); len(signals) != 0 {
		t.Fatalf("gate passed with a partial window, got %d signals", len(signals))
	}
}

func TestCrossWithoutRSIConditionIsIgnored(t *testing.T) {
	n := 20
	series := flatSeries(n, 200)
	frame := mkFrame(n)

	cross := 15
	for i := cross; i < n; i++ {
		frame.MACD[i] = 1
	}
	frame.ATR[cross] = 2
	// RSI stays neutral at 50

	if signals := GenerateSignals(series, frame); len(signals) != 0 {
		t.Fatalf("expected no signals without RSI extreme, got %d", len(signals))
	}
}

func TestGenerateSignalsDeterministic(t *testing.T) {
	n := 20
	series := flatSeries(n, 200)
	frame := mkFrame(n)
	cross := 15
	frame.RSI[cross] = 25
	for i := cross; i < n; i++ {
		frame.MACD[i] = 1
	}
	frame.ATR[cross] = 2

	first := GenerateSignals(series, frame)
	second := GenerateSignals(series, frame)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Fatalf("signal %d differs across runs", i)
		}
	}
}

func TestGenerateSignalsMisalignedFrame(t *testing.T) {
	series := flatSeries(20, 200)
	frame := mkFrame(10)
	if signals := GenerateSignals(series, frame); signals != nil {
		t.Fatalf("expected nil for misaligned frame")
	}
}
