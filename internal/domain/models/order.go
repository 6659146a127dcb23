package models

import "time"

// OrderStatus is the terminal outcome of a placement attempt.
type OrderStatus string

const (
	OrderPlaced   OrderStatus = "PLACED"
	OrderRejected OrderStatus = "REJECTED"
)

// Order records one placement outcome. OrderTime carries the signal time of
// the signal that triggered it, so (OrderTime, InstrumentKey) dedupes
// executions across overlapping poll windows.
type Order struct {
	OrderTime     time.Time
	InstrumentKey string
	Type          SignalType
	Quantity      int
	Price         float64
	OrderID       *string // nil when placement failed
	Status        OrderStatus
}
