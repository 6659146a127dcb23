package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
)

// ClickHouseArchive implements TickArchive over an append-only MergeTree
// table. It is a side channel for analytics; the upsert semantics live in
// the Timescale store, not here.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates the archive sink.
func NewClickHouseArchive(db *sql.DB, table string) drepo.TickArchive {
	return &ClickHouseArchive{db: db, table: table}
}

// Append inserts ticks in multi-row batches. Duplicates are acceptable
// here; readers dedupe on (ts, instrument_key) if they care.
func (a *ClickHouseArchive) Append(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, t := range ticks[start:end] {
			if t == nil || t.InstrumentKey == "" || t.Time.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, t.Time, t.InstrumentKey, t.LTP, t.Volume, t.LastTradeTime, t.LastClose)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (ts, instrument_key, ltp, volume, last_trade_time, last_close) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("%w: archive append: %v", models.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.
func (a *ClickHouseArchive) Close() error {
	return nil
}
