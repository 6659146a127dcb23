package usecase

import (
	"context"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
	"PromptTrader/pkg/logger"
)

// OrderExecutor polls the signal store and converts fresh signals into
// venue orders. Each cycle: fetch signals newer than the watermark, skip
// anything the order store has already seen, place the rest, record every
// outcome. The watermark advances to the cycle's start time only after a
// successful fetch, so signals landing during placement are picked up next
// cycle rather than lost.
type OrderExecutor struct {
	signals drepo.SignalStore
	orders  drepo.OrderStore
	gateway drepo.OrderGateway
	cursor  drepo.Cursor
	metrics drepo.Metrics
	logger  *logger.Logger

	interval  time.Duration
	keyPrefix string
	quantity  int
	opTimeout time.Duration

	lastChecked time.Time
}

// NewOrderExecutor creates the executor. keyPrefix restricts execution to
// one instrument segment (e.g. "NSE_FO"); quantity is the fixed lot size.
func NewOrderExecutor(
	signals drepo.SignalStore,
	orders drepo.OrderStore,
	gateway drepo.OrderGateway,
	cursor drepo.Cursor,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	interval time.Duration,
	keyPrefix string,
	quantity int,
	opTimeout time.Duration,
) *OrderExecutor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if quantity <= 0 {
		quantity = 25
	}
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &OrderExecutor{
		signals:   signals,
		orders:    orders,
		gateway:   gateway,
		cursor:    cursor,
		metrics:   metrics,
		logger:    lgr,
		interval:  interval,
		keyPrefix: keyPrefix,
		quantity:  quantity,
		opTimeout: opTimeout,
	}
}

// Run blocks until ctx is cancelled.
func (e *OrderExecutor) Run(ctx context.Context) {
	e.restoreCursor(ctx)

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

// restoreCursor resumes from the persisted watermark, falling back to a
// short backfill window on first run.
func (e *OrderExecutor) restoreCursor(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	t, ok, err := e.cursor.Load(cctx)
	if err != nil {
		e.metrics.RecordError("cursor_load")
		e.logger.Warn("cursor load failed, starting from backfill window", logger.Error(err))
	}
	if ok {
		e.lastChecked = t
		e.logger.Info("executor resuming", logger.String("since", t.Format(time.RFC3339)))
		return
	}
	e.lastChecked = time.Now().Add(-5 * time.Minute)
}

func (e *OrderExecutor) runCycle(ctx context.Context) {
	cycleStart := time.Now()

	fctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	signals, err := e.signals.FetchNewer(fctx, e.lastChecked, e.keyPrefix)
	cancel()
	if err != nil {
		// watermark untouched: the same window is retried next cycle
		e.metrics.RecordError("signal_fetch")
		e.logger.Warn("signal fetch failed", logger.Error(err))
		return
	}

	e.lastChecked = cycleStart
	e.persistCursor(ctx)

	for _, sig := range signals {
		e.execute(ctx, sig)
	}
	e.metrics.RecordLatency("executor_cycle", time.Since(cycleStart).Seconds())
}

// execute places one signal's order at most once. The order store is
// consulted first so a signal fetched twice across overlapping windows
// cannot be submitted twice.
func (e *OrderExecutor) execute(ctx context.Context, sig *models.Signal) {
	xctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	seen, err := e.orders.Exists(xctx, sig.SignalTime, sig.InstrumentKey)
	cancel()
	if err != nil {
		// can't prove it wasn't executed; skip rather than risk a double
		e.metrics.RecordError("order_exists")
		e.logger.Warn("order membership check failed, skipping signal",
			logger.String("instrument", sig.InstrumentKey), logger.Error(err))
		return
	}
	if seen {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	orderID, err := e.gateway.PlaceOrder(pctx, sig.InstrumentKey, sig.Type, e.quantity)
	cancel()

	order := &models.Order{
		OrderTime:     sig.SignalTime,
		InstrumentKey: sig.InstrumentKey,
		Type:          sig.Type,
		Quantity:      e.quantity,
		Price:         sig.LTP,
		Status:        models.OrderPlaced,
	}
	if err != nil {
		// recorded, never retried
		order.Status = models.OrderRejected
		e.logger.Warn("order rejected",
			logger.String("instrument", sig.InstrumentKey),
			logger.String("type", string(sig.Type)),
			logger.Error(err))
	} else {
		order.OrderID = &orderID
		e.logger.Info("order placed",
			logger.String("instrument", sig.InstrumentKey),
			logger.String("type", string(sig.Type)),
			logger.String("order_id", orderID),
			logger.Any("ltp", sig.LTP))
	}
	e.metrics.RecordOrder(string(order.Status))

	sctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	if err := e.orders.Insert(sctx, order); err != nil {
		e.metrics.RecordError("order_store")
		e.logger.Error("order outcome not recorded",
			logger.String("instrument", sig.InstrumentKey), logger.Error(err))
	}
}

func (e *OrderExecutor) persistCursor(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	if err := e.cursor.Store(cctx, e.lastChecked); err != nil {
		e.metrics.RecordError("cursor_store")
		e.logger.Warn("cursor persist failed", logger.Error(err))
	}
}
