package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PromptTrader/internal/domain/models"
)

type stubProc struct {
	mu    sync.Mutex
	err   error
	ticks []*models.Tick
}

func (s *stubProc) Process(_ context.Context, t *models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ticks = append(s.ticks, t)
	return nil
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

type nopMetrics struct{}

func (nopMetrics) RecordTickStored(string, string) {}
func (nopMetrics) RecordSignal(string)             {}
func (nopMetrics) RecordOrder(string)              {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func validTick(key string, at time.Time) *models.Tick {
	return &models.Tick{Time: at, InstrumentKey: key, LTP: 100, Volume: 10}
}

func TestPipelineForwardsValidTick(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})

	if err := p.Process(context.Background(), validTick("NSE_INDEX|Nifty 50", time.Now())); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("downstream saw %d ticks, want 1", proc.count())
	}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})
	ctx := context.Background()

	bad := []*models.Tick{
		nil,
		{Time: time.Now(), InstrumentKey: "", LTP: 1},
		{Time: time.Time{}, InstrumentKey: "NSE_INDEX|Nifty 50", LTP: 1},
		{Time: time.Now(), InstrumentKey: "NSE_INDEX|Nifty 50", LTP: -1},
		{Time: time.Now(), InstrumentKey: "NSE_INDEX|Nifty 50", LTP: 1, Volume: -5},
	}
	for i, tick := range bad {
		if err := p.Process(ctx, tick); err == nil {
			t.Errorf("case %d: invalid tick accepted", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("downstream saw %d invalid ticks", proc.count())
	}
}

func TestPipelineThrottlesPerInstrument(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithMaxRPS(1))
	ctx := context.Background()
	now := time.Now()

	// same instrument twice within the same second: second is dropped
	if err := p.Process(ctx, validTick("NSE_INDEX|Nifty 50", now)); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if err := p.Process(ctx, validTick("NSE_INDEX|Nifty 50", now)); err != nil {
		t.Fatalf("throttled tick should drop silently, got %v", err)
	}
	// a different instrument is unaffected
	if err := p.Process(ctx, validTick("NSE_FO|NIFTY25MAY23000CE", now)); err != nil {
		t.Fatalf("other instrument: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("downstream saw %d ticks, want 2", proc.count())
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &stubProc{err: errors.New("store down")}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithBufferSize(4))
	ctx := context.Background()

	if err := p.Process(ctx, validTick("NSE_INDEX|Nifty 50", time.Now())); err == nil {
		t.Fatal("expected downstream error to surface")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffer depth = %d, want 1", len(p.bufCh))
	}

	// downstream recovers; the flusher drains the buffer
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("buffered tick never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineTransformHook(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithTransform(func(t *models.Tick) *models.Tick {
		t.LTP = t.LTP * 2
		return t
	}))

	if err := p.Process(context.Background(), validTick("NSE_INDEX|Nifty 50", time.Now())); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if proc.ticks[0].LTP != 200 {
		t.Fatalf("transform not applied, ltp = %v", proc.ticks[0].LTP)
	}
}
