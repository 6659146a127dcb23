package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
)

// TimescaleTickStore implements TickStore over the market_data hypertable.
type TimescaleTickStore struct {
	db *sql.DB
}

// NewTimescaleTickStore creates the tick store.
func NewTimescaleTickStore(db *sql.DB) drepo.TickStore {
	return &TimescaleTickStore{db: db}
}

const tickUpsertSQL = `INSERT INTO market_data
	(time, instrument_key, ltp, volume, last_trade_time, last_close,
	 strike_price, option_type, open_interest, expiry_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (time, instrument_key) DO UPDATE SET
	ltp             = EXCLUDED.ltp,
	volume          = EXCLUDED.volume,
	last_trade_time = EXCLUDED.last_trade_time,
	last_close      = EXCLUDED.last_close,
	strike_price    = EXCLUDED.strike_price,
	option_type     = EXCLUDED.option_type,
	open_interest   = EXCLUDED.open_interest,
	expiry_date     = EXCLUDED.expiry_date`

// Upsert writes one tick; a re-send for the same (time, instrument_key)
// overwrites every non-key column (last-writer-wins, no merge).
func (s *TimescaleTickStore) Upsert(ctx context.Context, t *models.Tick) error {
	_, err := s.db.ExecContext(ctx, tickUpsertSQL, tickArgs(t)...)
	if err != nil {
		return fmt.Errorf("%w: upsert tick: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// UpsertBatch writes ticks one statement at a time inside a transaction, so
// a partial feed batch never half-lands.
func (s *TimescaleTickStore) UpsertBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", models.ErrStoreUnavailable, err)
	}
	for _, t := range ticks {
		if t == nil || t.InstrumentKey == "" || t.Time.IsZero() {
			continue
		}
		if _, err := tx.ExecContext(ctx, tickUpsertSQL, tickArgs(t)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: upsert batch: %v", models.ErrStoreUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// QuerySeries aggregates raw ticks into time_bucket bars, ascending. The
// bar's close is the last traded price inside the bucket.
func (s *TimescaleTickStore) QuerySeries(ctx context.Context, instrumentKey string, from, to time.Time, bucket time.Duration) (*models.PriceSeries, error) {
	const q = `SELECT time_bucket($1::interval, time) AS bucket,
		first(ltp, time) AS open,
		max(ltp)         AS high,
		min(ltp)         AS low,
		last(ltp, time)  AS close
	FROM market_data
	WHERE instrument_key = $2 AND time >= $3 AND time <= $4
	GROUP BY bucket
	ORDER BY bucket ASC`

	interval := fmt.Sprintf("%d seconds", int64(bucket.Seconds()))
	rows, err := s.db.QueryContext(ctx, q, interval, instrumentKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: query series: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	series := &models.PriceSeries{InstrumentKey: instrumentKey}
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("%w: scan series: %v", models.ErrStoreUnavailable, err)
		}
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: series rows: %v", models.ErrStoreUnavailable, err)
	}
	return series, nil
}

// Health pings the database.
func (s *TimescaleTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/postgres.
func (s *TimescaleTickStore) Close() error {
	return nil
}

func tickArgs(t *models.Tick) []interface{} {
	return []interface{}{
		t.Time,
		t.InstrumentKey,
		t.LTP,
		t.Volume,
		t.LastTradeTime,
		t.LastClose,
		nullFloat(t.StrikePrice),
		nullOptionType(t.OptionType),
		nullInt(t.OpenInterest),
		nullTime(t.ExpiryDate),
	}
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullOptionType(v *models.OptionType) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}
