package models

import "time"

// OptionType is the option side of a derivative instrument.
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// Tick is one observation of an instrument at a timestamp. Option-only
// fields are pointers so the store can persist them as NULL for index and
// equity instruments.
type Tick struct {
	Time          time.Time
	InstrumentKey string
	LTP           float64
	Volume        int64
	LastTradeTime int64 // epoch ms as sent by the feed
	LastClose     float64

	StrikePrice  *float64
	OptionType   *OptionType
	OpenInterest *int64
	ExpiryDate   *time.Time
}

// FeedKind tags which feed variant an entry was decoded from. It is
// resolved once at decode time, never re-inspected afterwards.
type FeedKind int

const (
	FeedIndex FeedKind = iota
	FeedEquity
	FeedOption
)

func (k FeedKind) String() string {
	switch k {
	case FeedIndex:
		return "index"
	case FeedEquity:
		return "equity"
	case FeedOption:
		return "option"
	}
	return "unknown"
}

// FeedEntry is the decoded per-instrument payload of one feed message.
type FeedEntry struct {
	Kind          FeedKind
	InstrumentKey string
	LTP           float64
	Volume        int64
	LastTradeTime int64
	LastClose     float64

	// Option fields, only meaningful when Kind == FeedOption.
	StrikePrice  float64
	OptionType   OptionType
	OpenInterest int64
}

// Tick converts the entry into a storable tick observed at ts. expiry may be
// nil when the instrument-metadata lookup failed; the column stays NULL.
func (e *FeedEntry) Tick(ts time.Time, expiry *time.Time) *Tick {
	t := &Tick{
		Time:          ts,
		InstrumentKey: e.InstrumentKey,
		LTP:           e.LTP,
		Volume:        e.Volume,
		LastTradeTime: e.LastTradeTime,
		LastClose:     e.LastClose,
	}
	if e.Kind == FeedOption {
		strike := e.StrikePrice
		ot := e.OptionType
		oi := e.OpenInterest
		t.StrikePrice = &strike
		t.OptionType = &ot
		t.OpenInterest = &oi
		t.ExpiryDate = expiry
	}
	return t
}

// Bar is one aggregated price sample inside a PriceSeries.
type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64 // last traded price within the bucket
}

// PriceSeries is an in-memory, read-only view over one instrument's prices.
// Bars are ascending by time; the indicator engine depends on that order.
type PriceSeries struct {
	InstrumentKey string
	Bars          []Bar
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close column as a slice.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}
