package usecase

import (
	"context"
	"fmt"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
	"PromptTrader/pkg/logger"
)

// Backend selects where decoded ticks go first.
const (
	BackendTimescale = "timescale"
	BackendKafka     = "kafka"
)

// TickProcessor routes ticks to the configured backend and mirrors them to
// the optional archive. Every external call gets its own timeout so a
// stalled store bounds the damage to one tick, not the whole loop.
type TickProcessor struct {
	pub     drepo.TickPublisher
	store   drepo.TickStore
	archive drepo.TickArchive
	metrics drepo.Metrics
	logger  *logger.Logger

	backend   string
	opTimeout time.Duration
}

// NewTickProcessor creates a processor. pub may be nil when the backend is
// timescale; archive may always be nil.
func NewTickProcessor(
	pub drepo.TickPublisher,
	store drepo.TickStore,
	archive drepo.TickArchive,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	backend string,
	opTimeout time.Duration,
) *TickProcessor {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &TickProcessor{
		pub:       pub,
		store:     store,
		archive:   archive,
		metrics:   metrics,
		logger:    lgr,
		backend:   backend,
		opTimeout: opTimeout,
	}
}

// Process routes a single tick.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	var err error
	switch p.backend {
	case BackendKafka:
		err = p.pub.Publish(opCtx, t)
	case BackendTimescale:
		err = p.store.Upsert(opCtx, t)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process tick: %w", err)
	}

	p.archiveTicks(ctx, []*models.Tick{t})

	p.metrics.RecordTickStored(p.backend, t.InstrumentKey)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple ticks at once.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	var err error
	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishBatch(opCtx, ticks)
	case BackendTimescale:
		err = p.store.UpsertBatch(opCtx, ticks)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	p.archiveTicks(ctx, ticks)

	for _, t := range ticks {
		p.metrics.RecordTickStored(p.backend, t.InstrumentKey)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// archiveTicks mirrors ticks into the raw archive, best effort. Archive
// trouble never fails the primary write.
func (p *TickProcessor) archiveTicks(ctx context.Context, ticks []*models.Tick) {
	if p.archive == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	if err := p.archive.Append(opCtx, ticks); err != nil {
		p.metrics.RecordError("archive")
		p.logger.Warn("tick archive append failed", logger.Error(err))
	}
}

// Close closes underlying resources if available.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
	if p.archive != nil {
		_ = p.archive.Close()
	}
}
