package models

import (
	"testing"
	"time"
)

func TestFeedEntryTickOption(t *testing.T) {
	ts := time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 5, 29, 0, 0, 0, 0, time.UTC)
	entry := &FeedEntry{
		Kind:          FeedOption,
		InstrumentKey: "NSE_FO|NIFTY25MAY23000CE",
		LTP:           123.45,
		Volume:        500,
		LastTradeTime: 1714989000000,
		LastClose:     120.5,
		StrikePrice:   23000,
		OptionType:    OptionTypeCall,
		OpenInterest:  10000,
	}

	tick := entry.Tick(ts, &expiry)
	if !tick.Time.Equal(ts) {
		t.Fatalf("time = %v, want %v", tick.Time, ts)
	}
	if tick.StrikePrice == nil || *tick.StrikePrice != 23000 {
		t.Errorf("strike = %v", tick.StrikePrice)
	}
	if tick.OptionType == nil || *tick.OptionType != OptionTypeCall {
		t.Errorf("option type = %v", tick.OptionType)
	}
	if tick.OpenInterest == nil || *tick.OpenInterest != 10000 {
		t.Errorf("open interest = %v", tick.OpenInterest)
	}
	if tick.ExpiryDate == nil || !tick.ExpiryDate.Equal(expiry) {
		t.Errorf("expiry = %v", tick.ExpiryDate)
	}
}

func TestFeedEntryTickIndex(t *testing.T) {
	entry := &FeedEntry{
		Kind:          FeedIndex,
		InstrumentKey: "NSE_INDEX|Nifty 50",
		LTP:           22500.25,
		LastClose:     22480,
	}

	tick := entry.Tick(time.Now(), nil)
	if tick.StrikePrice != nil || tick.OptionType != nil || tick.OpenInterest != nil || tick.ExpiryDate != nil {
		t.Fatalf("index tick carries option fields: %+v", tick)
	}
}

func TestFeedEntryTickOptionWithoutExpiry(t *testing.T) {
	entry := &FeedEntry{
		Kind:          FeedOption,
		InstrumentKey: "NSE_FO|NIFTY25MAY23000CE",
		LTP:           123.45,
		StrikePrice:   23000,
		OptionType:    OptionTypeCall,
	}

	// a failed metadata lookup leaves the expiry column NULL
	tick := entry.Tick(time.Now(), nil)
	if tick.ExpiryDate != nil {
		t.Fatalf("expiry = %v, want nil", tick.ExpiryDate)
	}
	if tick.StrikePrice == nil {
		t.Fatal("strike dropped")
	}
}
