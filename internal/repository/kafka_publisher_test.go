package repository

import (
	"testing"
	"time"

	"PromptTrader/internal/domain/models"
)

// Two ticks in the same second must stay distinct through the wire form:
// the observation time carries milliseconds, and the timescale upsert keys
// on it.
func TestTickMessageKeepsSubSecondTime(t *testing.T) {
	base := time.Date(2026, 5, 6, 9, 30, 0, 150_000_000, time.UTC)
	first := &models.Tick{Time: base, InstrumentKey: "NSE_INDEX|Nifty 50", LTP: 22500}
	second := &models.Tick{Time: base.Add(400 * time.Millisecond), InstrumentKey: "NSE_INDEX|Nifty 50", LTP: 22501}

	m1, m2 := NewTickMessage(first), NewTickMessage(second)
	if m1.T == m2.T {
		t.Fatalf("wire time collapsed: both ticks encoded as %d", m1.T)
	}

	got := m1.Tick()
	if !got.Time.Equal(first.Time) {
		t.Errorf("roundtrip time = %v, want %v", got.Time, first.Time)
	}
}
