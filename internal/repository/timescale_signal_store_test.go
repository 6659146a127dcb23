package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v2"

	"PromptTrader/internal/domain/models"
)

func TestSignalStoreInsert(t *testing.T) {
	at := time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		mockF   func(s sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "new signal",
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectExec("INSERT INTO trading_signals").
					WithArgs(at, "NSE_FO|NIFTY25MAY23000CE", "BUY", 123.45, 25.0, 1.5, 2.0).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate key is a silent no-op",
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectExec("INSERT INTO trading_signals").
					WithArgs(at, "NSE_FO|NIFTY25MAY23000CE", "BUY", 123.45, 25.0, 1.5, 2.0).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "database down",
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectExec("INSERT INTO trading_signals").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer db.Close()
			tt.mockF(mock)

			store := NewTimescaleSignalStore(db)
			sig := &models.Signal{
				SignalTime:    at,
				InstrumentKey: "NSE_FO|NIFTY25MAY23000CE",
				Type:          models.SignalBuy,
				LTP:           123.45,
				RSI:           25,
				MACD:          1.5,
				ATR:           2,
			}
			err = store.Insert(context.Background(), sig)
			if (err != nil) != tt.wantErr {
				t.Errorf("Insert() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, models.ErrStoreUnavailable) {
				t.Errorf("Insert() error = %v, want store-unavailable", err)
			}
		})
	}
}

func TestSignalStoreFetchNewer(t *testing.T) {
	since := time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC)

	t.Run("returns signals after the watermark", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{
			"signal_time", "instrument_key", "signal_type", "ltp", "rsi", "macd", "atr",
		}).
			AddRow(since.Add(time.Minute), "NSE_FO|NIFTY25MAY23000CE", "BUY", 123.45, 25.0, 1.5, 2.0).
			AddRow(since.Add(2*time.Minute), "NSE_FO|BANKNIFTY24DEC51000PE", "SELL", 88.0, 75.0, -1.5, 3.0)
		// pin the literal-prefix operator: a LIKE here would let the
		// underscore in "NSE_FO" match any segment character
		mock.ExpectQuery(`starts_with\(instrument_key`).
			WithArgs(since, "NSE_FO").
			WillReturnRows(rows)

		store := NewTimescaleSignalStore(db)
		got, err := store.FetchNewer(context.Background(), since, "NSE_FO")
		if err != nil {
			t.Fatalf("FetchNewer() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d signals, want 2", len(got))
		}
		if got[0].Type != models.SignalBuy || got[1].Type != models.SignalSell {
			t.Errorf("types = %s, %s", got[0].Type, got[1].Type)
		}
		if !got[0].SignalTime.After(since) {
			t.Errorf("signal time %v not after watermark %v", got[0].SignalTime, since)
		}
	})

	t.Run("empty window", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("FROM trading_signals").
			WithArgs(since, "NSE_FO").
			WillReturnRows(sqlmock.NewRows([]string{
				"signal_time", "instrument_key", "signal_type", "ltp", "rsi", "macd", "atr",
			}))

		store := NewTimescaleSignalStore(db)
		got, err := store.FetchNewer(context.Background(), since, "NSE_FO")
		if err != nil {
			t.Fatalf("FetchNewer() error = %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("got %d signals, want 0", len(got))
		}
	})

	t.Run("database down", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("FROM trading_signals").
			WillReturnError(fmt.Errorf("connection refused"))

		store := NewTimescaleSignalStore(db)
		_, err = store.FetchNewer(context.Background(), since, "NSE_FO")
		if !errors.Is(err, models.ErrStoreUnavailable) {
			t.Fatalf("FetchNewer() error = %v, want store-unavailable", err)
		}
	})
}

func TestSignalStoreQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	from := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	rows := sqlmock.NewRows([]string{
		"signal_time", "instrument_key", "signal_type", "ltp", "rsi", "macd", "atr",
	}).
		AddRow(from.Add(5*time.Minute), "NSE_FO|NIFTY25MAY23000CE", "BUY", 123.45, 25.0, 1.5, 2.0)
	mock.ExpectQuery("FROM trading_signals").
		WithArgs("NSE_FO|NIFTY25MAY23000CE", from, to, 100).
		WillReturnRows(rows)

	store := NewTimescaleSignalStore(db)
	got, err := store.Query(context.Background(), "NSE_FO|NIFTY25MAY23000CE", from, to, 100)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d signals, want 1", len(got))
	}
	if got[0].RSI != 25 || got[0].MACD != 1.5 || got[0].ATR != 2 {
		t.Errorf("indicator columns lost in scan: %+v", got[0])
	}
}
