package analytics

import (
	"math"

	"PromptTrader/internal/domain/models"
)

// Indicator parameters. These mirror the classic RSI(14) / MACD(12,26,9) /
// ATR(14) setup and are deliberately not configurable: the signal rules
// below are calibrated against them.
const (
	RSIPeriod        = 14
	ATRPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
)

// Compute derives RSI, MACD and ATR columns aligned with the input series.
// It is a pure function: no state survives between calls, every invocation
// recomputes from the full lookback window. Entries before each indicator's
// warm-up are NaN. A series shorter than the minimum warm-up yields an
// empty frame.
func Compute(series *models.PriceSeries) *models.IndicatorFrame {
	n := series.Len()
	if n < RSIPeriod {
		return &models.IndicatorFrame{}
	}

	closes := series.Closes()
	macd := macdLine(closes)

	return &models.IndicatorFrame{
		RSI:        rsi(closes, RSIPeriod),
		MACD:       macd,
		MACDSignal: ema(macd, MACDSignalPeriod),
		ATR:        atr(series.Bars, ATRPeriod),
	}
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func firstValid(vals []float64) int {
	for i, v := range vals {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// ema seeds with the simple mean of the first period valid values, then
// applies the usual k = 2/(period+1) smoothing. Leading NaNs in the input
// (e.g. the MACD line fed into its signal EMA) shift the warm-up forward.
func ema(vals []float64, period int) []float64 {
	out := nans(len(vals))
	first := firstValid(vals)
	if first < 0 || len(vals)-first < period {
		return out
	}

	var sum float64
	for i := first; i < first+period; i++ {
		sum += vals[i]
	}
	prev := sum / float64(period)
	out[first+period-1] = prev

	k := 2.0 / float64(period+1)
	for i := first + period; i < len(vals); i++ {
		prev += (vals[i] - prev) * k
		out[i] = prev
	}
	return out
}

func macdLine(closes []float64) []float64 {
	fast := ema(closes, MACDFastPeriod)
	slow := ema(closes, MACDSlowPeriod)
	out := nans(len(closes))
	for i := range closes {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			continue
		}
		out[i] = fast[i] - slow[i]
	}
	return out
}

// rsi is the 14-period Wilder RSI: seed averages over the first period
// deltas, then smoothed with (prev*(p-1)+cur)/p. A flat window (no gains,
// no losses) reads as neutral 50; a lossless window pegs at 100.
func rsi(closes []float64, period int) []float64 {
	out := nans(len(closes))
	if len(closes) < period+1 {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// atr is the 14-period Wilder average true range over (high, low, close).
func atr(bars []models.Bar, period int) []float64 {
	out := nans(len(bars))
	if len(bars) < period+1 {
		return out
	}

	tr := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	out[period] = prev

	for i := period + 1; i < len(bars); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}
	return out
}
