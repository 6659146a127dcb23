package repository

import (
	"context"
	"time"

	"PromptTrader/internal/domain/models"
)

// MarketStream is the broker feed connection. Read yields raw binary frames;
// decoding is the FeedDecoder's job.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan []byte, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// FeedDecoder turns one raw feed frame into per-instrument entries.
type FeedDecoder interface {
	Decode(raw []byte) (map[string]models.FeedEntry, error)
}

// TickStore owns the market_data hypertable.
type TickStore interface {
	Upsert(ctx context.Context, t *models.Tick) error
	UpsertBatch(ctx context.Context, ticks []*models.Tick) error
	// QuerySeries aggregates ticks into ascending time_bucket bars for the
	// indicator engine.
	QuerySeries(ctx context.Context, instrumentKey string, from, to time.Time, bucket time.Duration) (*models.PriceSeries, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalStore owns the trading_signals hypertable. Insert is
// dedupe-on-conflict: re-inserting an existing (signal_time, instrument_key)
// is a no-op.
type SignalStore interface {
	Insert(ctx context.Context, s *models.Signal) error
	// FetchNewer returns signals with signal_time strictly after since,
	// restricted to instrument keys with the given prefix, ascending.
	FetchNewer(ctx context.Context, since time.Time, keyPrefix string) ([]*models.Signal, error)
	Query(ctx context.Context, instrumentKey string, from, to time.Time, limit int) ([]*models.Signal, error)
}

// OrderStore owns the executed_orders hypertable.
type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	// Exists reports whether a signal was already executed. The executor
	// consults it before placement so overlapping poll windows cannot
	// double-submit.
	Exists(ctx context.Context, signalTime time.Time, instrumentKey string) (bool, error)
	Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Order, error)
}

// TickPublisher pushes decoded ticks onto a message bus when the pipeline
// runs in kafka backend mode.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// TickArchive is an optional append-only sink for raw ticks, kept separate
// from the upsert store.
type TickArchive interface {
	Append(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// OrderGateway submits orders to the venue. An error return means the order
// was not placed; the executor records it as REJECTED and moves on.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, instrumentKey string, side models.SignalType, quantity int) (orderID string, err error)
}

// InstrumentMeta resolves instrument metadata the feed cannot carry,
// currently just the option expiry date.
type InstrumentMeta interface {
	Expiry(ctx context.Context, instrumentKey string) (time.Time, error)
}

// Cursor persists the executor's last-checked watermark across restarts.
type Cursor interface {
	Load(ctx context.Context) (time.Time, bool, error)
	Store(ctx context.Context, t time.Time) error
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordTickStored(backend, instrumentKey string)
	RecordSignal(signalType string)
	RecordOrder(status string)
	RecordError(kind string)
	RecordLastPrice(instrumentKey string, price float64)
	RecordLatency(op string, seconds float64)
}
