package repository

import (
	"context"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
	pkgkafka "PromptTrader/pkg/kafka"
)

// TickMessage is the JSON wire form of a tick on the kafka backend. The
// consumer side reconstructs a full Tick from it, so option fields ride
// along as pointers.
type TickMessage struct {
	InstrumentKey string  `json:"instrument_key"`
	T             int64   `json:"t"` // observation time, unix milliseconds
	LTP           float64 `json:"ltp"`
	Volume        int64   `json:"v"`
	LastTradeTime int64   `json:"ltt"`
	LastClose     float64 `json:"cp"`

	StrikePrice  *float64 `json:"strike_price,omitempty"`
	OptionType   *string  `json:"option_type,omitempty"`
	OpenInterest *int64   `json:"open_interest,omitempty"`
	ExpiryDate   *string  `json:"expiry_date,omitempty"` // YYYY-MM-DD
}

// NewTickMessage converts a tick for publication.
func NewTickMessage(t *models.Tick) *TickMessage {
	m := &TickMessage{
		InstrumentKey: t.InstrumentKey,
		T:             t.Time.UnixMilli(),
		LTP:           t.LTP,
		Volume:        t.Volume,
		LastTradeTime: t.LastTradeTime,
		LastClose:     t.LastClose,
		StrikePrice:   t.StrikePrice,
		OpenInterest:  t.OpenInterest,
	}
	if t.OptionType != nil {
		ot := string(*t.OptionType)
		m.OptionType = &ot
	}
	if t.ExpiryDate != nil {
		d := t.ExpiryDate.Format("2006-01-02")
		m.ExpiryDate = &d
	}
	return m
}

// Tick converts the message back to the domain model.
func (m *TickMessage) Tick() *models.Tick {
	t := &models.Tick{
		Time:          time.UnixMilli(m.T).UTC(),
		InstrumentKey: m.InstrumentKey,
		LTP:           m.LTP,
		Volume:        m.Volume,
		LastTradeTime: m.LastTradeTime,
		LastClose:     m.LastClose,
		StrikePrice:   m.StrikePrice,
		OpenInterest:  m.OpenInterest,
	}
	if m.OptionType != nil {
		ot := models.OptionType(*m.OptionType)
		t.OptionType = &ot
	}
	if m.ExpiryDate != nil {
		if d, err := time.Parse("2006-01-02", *m.ExpiryDate); err == nil {
			t.ExpiryDate = &d
		}
	}
	return t
}

// KafkaTickPublisher implements TickPublisher over the shared producer.
// Messages are keyed by instrument so per-instrument ordering survives
// partitioning.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTickPublisher creates the publisher.
func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) drepo.TickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.InstrumentKey), NewTickMessage(t))
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(t.InstrumentKey),
			Value: NewTickMessage(t),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
