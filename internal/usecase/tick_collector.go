package usecase

import (
	"context"
	"errors"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
	mid "PromptTrader/internal/middleware"
	"PromptTrader/pkg/logger"
)

// TickCollector owns the feed loop: block on the next frame, decode it,
// enrich option entries with expiry metadata, and hand ticks to the
// processor. A decode or write failure is logged and the loop moves on to
// the next message; only connection loss triggers a reconnect.
type TickCollector struct {
	stream  drepo.MarketStream
	decoder drepo.FeedDecoder
	meta    drepo.InstrumentMeta
	proc    *TickProcessor
	metrics drepo.Metrics
	logger  *logger.Logger
	pipe    *mid.RealtimePipeline

	metaTimeout time.Duration
}

// NewTickCollector creates the feed loop.
func NewTickCollector(
	stream drepo.MarketStream,
	decoder drepo.FeedDecoder,
	meta drepo.InstrumentMeta,
	proc *TickProcessor,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	pipe *mid.RealtimePipeline,
) *TickCollector {
	return &TickCollector{
		stream:      stream,
		decoder:     decoder,
		meta:        meta,
		proc:        proc,
		metrics:     metrics,
		logger:      lgr,
		pipe:        pipe,
		metaTimeout: 5 * time.Second,
	}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes and launches the consume loop.
func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	frames, errs := c.stream.Read(ctx)
	go c.consume(ctx, frames, errs)
	return nil
}

// consume drains one read generation at a time. The stream closes both
// channels when its read loop dies, so any error or closure means the old
// connection is gone: reconnect and re-acquire fresh channels from Read,
// never select on the dead ones again.
func (c *TickCollector) consume(ctx context.Context, frames <-chan []byte, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err != nil {
				c.metrics.RecordError("stream")
				c.logger.Warn("feed stream error, reconnecting", logger.Error(err))
			}
			frames, errs = c.reopen(ctx)
			if frames == nil {
				return
			}
		case raw, ok := <-frames:
			if !ok {
				// drained after close; the errs case drives the reconnect
				frames = nil
				continue
			}
			if raw == nil {
				continue
			}
			c.handleFrame(ctx, raw)
		}
	}
}

// reopen reconnects until it succeeds or ctx is cancelled, then returns the
// new generation's channels. Returns nil channels only on cancellation.
func (c *TickCollector) reopen(ctx context.Context) (<-chan []byte, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("reconnect")
			c.logger.Warn("feed reconnect failed, retrying", logger.Error(err))
			continue
		}
		frames, errs := c.stream.Read(ctx)
		return frames, errs
	}
}

func (c *TickCollector) handleFrame(ctx context.Context, raw []byte) {
	entries, err := c.decoder.Decode(raw)
	if err != nil {
		if errors.Is(err, models.ErrMalformedFeed) {
			c.metrics.RecordError("decode")
			c.logger.Warn("malformed feed frame skipped", logger.Error(err), logger.Int("bytes", len(raw)))
			return
		}
		c.metrics.RecordError("decode")
		c.logger.Error("feed decode failed", logger.Error(err))
		return
	}

	for _, entry := range entries {
		tick := entry.Tick(c.observedAt(entry), c.expiryFor(ctx, entry))

		if c.pipe != nil {
			_ = c.pipe.Process(ctx, tick)
		} else if err := c.proc.Process(ctx, tick); err != nil {
			c.logger.Warn("tick dropped", logger.String("instrument", tick.InstrumentKey), logger.Error(err))
		}
		c.metrics.RecordLastPrice(tick.InstrumentKey, tick.LTP)
	}
}

// observedAt prefers the feed's last-trade time so re-sends of the same
// trade land on the same primary key and upsert instead of piling up rows.
func (c *TickCollector) observedAt(entry models.FeedEntry) time.Time {
	if entry.LastTradeTime > 0 {
		return time.UnixMilli(entry.LastTradeTime).UTC()
	}
	return time.Now().UTC()
}

// expiryFor resolves the option expiry via the instrument-metadata
// collaborator. Lookup failure leaves the column NULL; it never blocks the
// tick.
func (c *TickCollector) expiryFor(ctx context.Context, entry models.FeedEntry) *time.Time {
	if entry.Kind != models.FeedOption || c.meta == nil {
		return nil
	}

	mctx, cancel := context.WithTimeout(ctx, c.metaTimeout)
	defer cancel()

	expiry, err := c.meta.Expiry(mctx, entry.InstrumentKey)
	if err != nil {
		c.metrics.RecordError("instrument_meta")
		c.logger.Warn("expiry lookup failed", logger.String("instrument", entry.InstrumentKey), logger.Error(err))
		return nil
	}
	return &expiry
}

// Processor returns the underlying TickProcessor for lifecycle management.
func (c *TickCollector) Processor() *TickProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
