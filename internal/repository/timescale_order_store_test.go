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

func TestOrderStoreInsert(t *testing.T) {
	orderID := "upstox-42"
	tests := []struct {
		name    string
		order   *models.Order
		mockF   func(s sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "placed order with broker id",
			order: &models.Order{
				OrderTime:     time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC),
				InstrumentKey: "NSE_FO|NIFTY25MAY23000CE",
				Type:          models.SignalBuy,
				Quantity:      25,
				Price:         123.45,
				OrderID:       &orderID,
				Status:        models.OrderPlaced,
			},
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectExec("INSERT INTO executed_orders").
					WithArgs(sqlmock.AnyArg(), "NSE_FO|NIFTY25MAY23000CE", "BUY", 25, 123.45, "upstox-42", "PLACED").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "rejected order has null broker id",
			order: &models.Order{
				OrderTime:     time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC),
				InstrumentKey: "NSE_FO|NIFTY25MAY23000CE",
				Type:          models.SignalSell,
				Quantity:      25,
				Price:         88,
				Status:        models.OrderRejected,
			},
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectExec("INSERT INTO executed_orders").
					WithArgs(sqlmock.AnyArg(), "NSE_FO|NIFTY25MAY23000CE", "SELL", 25, 88.0, nil, "REJECTED").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "database down",
			order: &models.Order{
				OrderTime:     time.Now(),
				InstrumentKey: "NSE_FO|NIFTY25MAY23000CE",
				Type:          models.SignalBuy,
				Quantity:      25,
				Status:        models.OrderPlaced,
			},
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectExec("INSERT INTO executed_orders").
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

			store := NewTimescaleOrderStore(db)
			err = store.Insert(context.Background(), tt.order)
			if (err != nil) != tt.wantErr {
				t.Errorf("Insert() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, models.ErrStoreUnavailable) {
				t.Errorf("Insert() error = %v, want store-unavailable", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestOrderStoreExists(t *testing.T) {
	at := time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		mockF   func(s sqlmock.Sqlmock)
		want    bool
		wantErr bool
	}{
		{
			name: "already executed",
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectQuery("SELECT EXISTS").
					WithArgs(at, "NSE_FO|NIFTY25MAY23000CE").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: true,
		},
		{
			name: "not yet executed",
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectQuery("SELECT EXISTS").
					WithArgs(at, "NSE_FO|NIFTY25MAY23000CE").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			want: false,
		},
		{
			name: "database down",
			mockF: func(s sqlmock.Sqlmock) {
				s.ExpectQuery("SELECT EXISTS").
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

			store := NewTimescaleOrderStore(db)
			got, err := store.Exists(context.Background(), at, "NSE_FO|NIFTY25MAY23000CE")
			if (err != nil) != tt.wantErr {
				t.Errorf("Exists() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderStoreQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	from := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"order_time", "instrument_key", "order_type", "quantity", "price", "order_id", "status",
	}).
		AddRow(from.Add(10*time.Minute), "NSE_FO|NIFTY25MAY23000CE", "BUY", 25, 123.45, "upstox-42", "PLACED").
		AddRow(from.Add(30*time.Minute), "NSE_FO|NIFTY25MAY23000CE", "SELL", 25, 110.0, nil, "REJECTED")
	mock.ExpectQuery("SELECT order_time, instrument_key").
		WithArgs(from, to, 100).
		WillReturnRows(rows)

	store := NewTimescaleOrderStore(db)
	got, err := store.Query(context.Background(), from, to, 100)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query() returned %d orders, want 2", len(got))
	}
	if got[0].OrderID == nil || *got[0].OrderID != "upstox-42" {
		t.Errorf("first order id = %v, want upstox-42", got[0].OrderID)
	}
	if got[1].OrderID != nil {
		t.Errorf("rejected order id = %v, want nil", *got[1].OrderID)
	}
	if got[1].Status != models.OrderRejected {
		t.Errorf("second status = %s, want REJECTED", got[1].Status)
	}
}
