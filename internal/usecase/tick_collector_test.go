package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PromptTrader/internal/domain/models"
)

// scriptedStream is a MarketStream whose first read generation dies the way
// the real stream does: it emits one error and closes both channels. Later
// generations emit one frame each and stay open.
type scriptedStream struct {
	mu         sync.Mutex
	readCalls  int
	reconnects int
	connected  bool
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(context.Context) (<-chan []byte, <-chan error) {
	s.mu.Lock()
	gen := s.readCalls
	s.readCalls++
	s.mu.Unlock()

	frames := make(chan []byte, 1)
	errs := make(chan error, 1)
	if gen == 0 {
		errs <- errors.New("connection reset by peer")
		close(frames)
		close(errs)
		return frames, errs
	}
	frames <- []byte{0x01}
	return frames, errs
}

func (s *scriptedStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.connected = true
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCalls, s.reconnects
}

type stubDecoder struct{}

func (stubDecoder) Decode([]byte) (map[string]models.FeedEntry, error) {
	return map[string]models.FeedEntry{
		"NSE_INDEX|Nifty 50": {
			Kind:          models.FeedIndex,
			InstrumentKey: "NSE_INDEX|Nifty 50",
			LTP:           22500,
			LastTradeTime: 1714989000000,
		},
	}, nil
}

type memTickStore struct {
	mu      sync.Mutex
	upserts int
}

func (m *memTickStore) Upsert(context.Context, *models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	return nil
}

func (m *memTickStore) UpsertBatch(_ context.Context, ticks []*models.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts += len(ticks)
	return nil
}

func (m *memTickStore) QuerySeries(_ context.Context, key string, _, _ time.Time, _ time.Duration) (*models.PriceSeries, error) {
	return &models.PriceSeries{InstrumentKey: key}, nil
}

func (m *memTickStore) Health(context.Context) error { return nil }
func (m *memTickStore) Close() error                 { return nil }

func (m *memTickStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// A dropped connection must not kill ingestion: after the stream's channels
// close, the collector reconnects and reads from the new generation.
func TestCollectorResumesReadingAfterReconnect(t *testing.T) {
	stream := &scriptedStream{}
	store := &memTickStore{}
	proc := NewTickProcessor(nil, store, nil, &fakeMetrics{}, testLogger(t), BackendTimescale, time.Second)
	collector := NewTickCollector(stream, stubDecoder{}, nil, proc, &fakeMetrics{}, testLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := collector.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for store.count() == 0 {
		select {
		case <-deadline:
			reads, reconnects := stream.counts()
			t.Fatalf("no tick stored after reconnect; reads=%d reconnects=%d", reads, reconnects)
		case <-time.After(5 * time.Millisecond):
		}
	}

	reads, reconnects := stream.counts()
	if reconnects != 1 {
		t.Errorf("reconnects = %d, want 1", reconnects)
	}
	if reads != 2 {
		t.Errorf("Read() called %d times, want 2 (one per connection)", reads)
	}
}
