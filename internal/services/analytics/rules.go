package analytics

import (
	"math"
	"sort"

	"PromptTrader/internal/domain/models"
)

// Rule thresholds.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0

	// ATRMedianWindow is how many trailing ATR values feed the volatility
	// gate's median.
	ATRMedianWindow = 14
)

// GenerateSignals applies the crossover rules over an aligned series/frame
// pair and returns the signals in series order. It is deterministic and
// stateless: re-running over the same inputs yields identical signals, and
// the signal store's conflict rule drops the re-inserts.
//
// An index emits a signal only when
//   - the volatility gate passes: atr[i] is strictly above the median of the
//     trailing ATRMedianWindow values ending at i, and
//   - BUY:  rsi[i] < 30 and the MACD line crosses above its signal line
//     exactly at i (macd[i-1] <= signal[i-1], macd[i] > signal[i]), or
//   - SELL: rsi[i] > 70 and the MACD line crosses below exactly at i.
//
// Crossovers fire at the transition index only, so a sustained condition
// produces one signal, not one per bar.
func GenerateSignals(series *models.PriceSeries, frame *models.IndicatorFrame) []*models.Signal {
	if series.Len() < 2 || frame.Len() != series.Len() {
		return nil
	}

	var out []*models.Signal
	for i := 1; i < series.Len(); i++ {
		r := frame.RSI[i]
		m, s := frame.MACD[i], frame.MACDSignal[i]
		pm, ps := frame.MACD[i-1], frame.MACDSignal[i-1]
		a := frame.ATR[i]
		if anyNaN(r, m, s, pm, ps, a) {
			continue
		}
		if !volatilityGate(frame.ATR, i) {
			continue
		}

		var st models.SignalType
		switch {
		case r < RSIOversold && m > s && pm <= ps:
			st = models.SignalBuy
		case r > RSIOverbought && m < s && pm >= ps:
			st = models.SignalSell
		default:
			continue
		}

		out = append(out, &models.Signal{
			SignalTime:    series.Bars[i].Time,
			InstrumentKey: series.InstrumentKey,
			Type:          st,
			LTP:           series.Bars[i].Close,
			RSI:           r,
			MACD:          m,
			ATR:           a,
		})
	}
	return out
}

// volatilityGate passes when atr[i] exceeds the median of the trailing
// window of defined ATR values ending at i. Indices where the window is not
// yet fully defined are skipped entirely: chop suppression beats early
// signals.
func volatilityGate(atr []float64, i int) bool {
	window := make([]float64, 0, ATRMedianWindow)
	for j := i; j >= 0 && len(window) < ATRMedianWindow; j-- {
		if math.IsNaN(atr[j]) {
			break
		}
		window = append(window, atr[j])
	}
	if len(window) < ATRMedianWindow {
		return false
	}
	return atr[i] > median(window)
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
