package usecase

import (
	"context"
	"time"

	drepo "PromptTrader/internal/domain/repository"
	"PromptTrader/internal/services/analytics"
	"PromptTrader/pkg/logger"
	"PromptTrader/pkg/util"
)

// SignalEngine runs the periodic indicator/signal cycle: pull a bounded
// lookback of bars per instrument, recompute indicators from scratch, apply
// the crossover rules, persist whatever comes out. The cycle body runs
// inline in the loop goroutine, so one cycle always finishes before the
// next timer fire is serviced. It shares nothing in-process with the feed
// loop or the executor; the store is the only meeting point.
type SignalEngine struct {
	ticks   drepo.TickStore
	signals drepo.SignalStore
	metrics drepo.Metrics
	logger  *logger.Logger

	instrumentKeys []string
	interval       time.Duration
	lookback       time.Duration
	bucket         time.Duration
	opTimeout      time.Duration
}

// NewSignalEngine creates the engine.
func NewSignalEngine(
	ticks drepo.TickStore,
	signals drepo.SignalStore,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	instrumentKeys []string,
	interval, lookback, bucket, opTimeout time.Duration,
) *SignalEngine {
	if interval <= 0 {
		interval = time.Minute
	}
	if lookback <= 0 {
		lookback = 14 * 24 * time.Hour
	}
	if bucket <= 0 {
		bucket = time.Hour
	}
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &SignalEngine{
		ticks:          ticks,
		signals:        signals,
		metrics:        metrics,
		logger:         lgr,
		instrumentKeys: instrumentKeys,
		interval:       interval,
		lookback:       lookback,
		bucket:         bucket,
		opTimeout:      opTimeout,
	}
}

// Run blocks until ctx is cancelled.
func (e *SignalEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

func (e *SignalEngine) runCycle(ctx context.Context) {
	start := time.Now()
	for _, key := range e.instrumentKeys {
		e.analyzeInstrument(ctx, key, start)
	}
	e.metrics.RecordLatency("signal_cycle", time.Since(start).Seconds())
}

func (e *SignalEngine) analyzeInstrument(ctx context.Context, instrumentKey string, now time.Time) {
	from, to := util.AlignRange(now.Add(-e.lookback), now, e.bucket)

	qctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	series, err := e.ticks.QuerySeries(qctx, instrumentKey, from, to, e.bucket)
	cancel()
	if err != nil {
		e.metrics.RecordError("series_query")
		e.logger.Warn("series query failed, skipping instrument this cycle",
			logger.String("instrument", instrumentKey), logger.Error(err))
		return
	}
	if series.Len() < analytics.RSIPeriod {
		return
	}

	frame := analytics.Compute(series)
	if frame.Empty() {
		return
	}

	for _, sig := range analytics.GenerateSignals(series, frame) {
		ictx, cancel := context.WithTimeout(ctx, e.opTimeout)
		err := e.signals.Insert(ictx, sig)
		cancel()
		if err != nil {
			// abandoned for this cycle; the next cycle re-derives it
			e.metrics.RecordError("signal_insert")
			e.logger.Warn("signal insert failed",
				logger.String("instrument", sig.InstrumentKey), logger.Error(err))
			continue
		}
		e.metrics.RecordSignal(string(sig.Type))
		e.logger.Info("signal",
			logger.String("instrument", sig.InstrumentKey),
			logger.String("type", string(sig.Type)),
			logger.Any("ltp", sig.LTP),
			logger.Any("rsi", sig.RSI),
			logger.Any("macd", sig.MACD))
	}
}
