package usecase

import (
	"context"
	"encoding/json"
	"time"

	drepo "PromptTrader/internal/domain/repository"
	"PromptTrader/internal/repository"
	pkgkafka "PromptTrader/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages off the bus and upserts them
// into the tick store. Kafka's at-least-once delivery is fine here: the
// store's primary-key conflict rule absorbs redelivered messages.
type KafkaTicksHandler struct {
	topic   string
	store   drepo.TickStore
	metrics drepo.Metrics
}

func NewKafkaTicksHandler(topic string, store drepo.TickStore, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m repository.TickMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(m.T)).Seconds())

	start := time.Now()
	err := h.store.Upsert(ctx, m.Tick())
	h.metrics.RecordLatency("store_upsert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordTickStored("timescale", m.InstrumentKey)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
