package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
)

// TimescaleOrderStore implements OrderStore over the executed_orders
// hypertable.
type TimescaleOrderStore struct {
	db *sql.DB
}

// NewTimescaleOrderStore creates the order store.
func NewTimescaleOrderStore(db *sql.DB) drepo.OrderStore {
	return &TimescaleOrderStore{db: db}
}

// Insert records one placement outcome. Conflict on
// (order_time, instrument_key) is a no-op, so a signal executed once stays
// executed once even when poll windows overlap.
func (s *TimescaleOrderStore) Insert(ctx context.Context, o *models.Order) error {
	const q = `INSERT INTO executed_orders
		(order_time, instrument_key, order_type, quantity, price, order_id, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_time, instrument_key) DO NOTHING`

	var orderID interface{}
	if o.OrderID != nil {
		orderID = *o.OrderID
	}
	_, err := s.db.ExecContext(ctx, q,
		o.OrderTime, o.InstrumentKey, string(o.Type), o.Quantity, o.Price, orderID, string(o.Status))
	if err != nil {
		return fmt.Errorf("%w: insert order: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether a signal already has an execution record.
func (s *TimescaleOrderStore) Exists(ctx context.Context, signalTime time.Time, instrumentKey string) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM executed_orders WHERE order_time = $1 AND instrument_key = $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, q, signalTime, instrumentKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: order exists: %v", models.ErrStoreUnavailable, err)
	}
	return exists, nil
}

// Query returns orders in a time range, ascending.
func (s *TimescaleOrderStore) Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Order, error) {
	const q = `SELECT order_time, instrument_key, order_type, quantity, price, order_id, status
	FROM executed_orders
	WHERE order_time >= $1 AND order_time <= $2
	ORDER BY order_time ASC
	LIMIT $3`

	rows, err := s.db.QueryContext(ctx, q, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query orders: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		var o models.Order
		var ot, status string
		var orderID sql.NullString
		if err := rows.Scan(&o.OrderTime, &o.InstrumentKey, &ot, &o.Quantity, &o.Price, &orderID, &status); err != nil {
			return nil, fmt.Errorf("%w: scan order: %v", models.ErrStoreUnavailable, err)
		}
		o.Type = models.SignalType(ot)
		o.Status = models.OrderStatus(status)
		if orderID.Valid {
			id := orderID.String
			o.OrderID = &id
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: order rows: %v", models.ErrStoreUnavailable, err)
	}
	return out, nil
}
