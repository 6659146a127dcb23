package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
)

// TimescaleSignalStore implements SignalStore over the trading_signals
// hypertable.
type TimescaleSignalStore struct {
	db *sql.DB
}

// NewTimescaleSignalStore creates the signal store.
func NewTimescaleSignalStore(db *sql.DB) drepo.SignalStore {
	return &TimescaleSignalStore{db: db}
}

// Insert persists one signal. Re-inserting an existing
// (signal_time, instrument_key) is silently dropped, which is what makes
// signal generation safely re-runnable over the same window.
func (s *TimescaleSignalStore) Insert(ctx context.Context, sig *models.Signal) error {
	const q = `INSERT INTO trading_signals
		(signal_time, instrument_key, signal_type, ltp, rsi, macd, atr)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (signal_time, instrument_key) DO NOTHING`

	_, err := s.db.ExecContext(ctx, q,
		sig.SignalTime, sig.InstrumentKey, string(sig.Type), sig.LTP, sig.RSI, sig.MACD, sig.ATR)
	if err != nil {
		return fmt.Errorf("%w: insert signal: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// FetchNewer returns signals strictly after since for instruments matching
// the key prefix, ascending by time. starts_with treats the prefix
// literally; LIKE would read the underscore in keys like "NSE_FO" as a
// wildcard.
func (s *TimescaleSignalStore) FetchNewer(ctx context.Context, since time.Time, keyPrefix string) ([]*models.Signal, error) {
	const q = `SELECT signal_time, instrument_key, signal_type, ltp, rsi, macd, atr
	FROM trading_signals
	WHERE signal_time > $1 AND starts_with(instrument_key, $2)
	ORDER BY signal_time ASC`

	rows, err := s.db.QueryContext(ctx, q, since, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch signals: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// Query returns signals for one instrument in a time range, ascending.
func (s *TimescaleSignalStore) Query(ctx context.Context, instrumentKey string, from, to time.Time, limit int) ([]*models.Signal, error) {
	const q = `SELECT signal_time, instrument_key, signal_type, ltp, rsi, macd, atr
	FROM trading_signals
	WHERE instrument_key = $1 AND signal_time >= $2 AND signal_time <= $3
	ORDER BY signal_time ASC
	LIMIT $4`

	rows, err := s.db.QueryContext(ctx, q, instrumentKey, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query signals: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func scanSignals(rows *sql.Rows) ([]*models.Signal, error) {
	var out []*models.Signal
	for rows.Next() {
		var sig models.Signal
		var st string
		if err := rows.Scan(&sig.SignalTime, &sig.InstrumentKey, &st, &sig.LTP, &sig.RSI, &sig.MACD, &sig.ATR); err != nil {
			return nil, fmt.Errorf("%w: scan signal: %v", models.ErrStoreUnavailable, err)
		}
		sig.Type = models.SignalType(st)
		out = append(out, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: signal rows: %v", models.ErrStoreUnavailable, err)
	}
	return out, nil
}
