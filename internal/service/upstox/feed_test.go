package upstox

import (
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"PromptTrader/internal/domain/models"
)

func appendSubmessage(b []byte, num protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func ltpcBytes(ltp float64, ltt int64, cp float64) []byte {
	var b []byte
	b = appendDouble(b, fnLTPCLtp, ltp)
	b = appendVarint(b, fnLTPCLtt, uint64(ltt))
	b = appendDouble(b, fnLTPCCp, cp)
	return b
}

// marketFrame builds a full FeedResponse with one equity/derivative entry.
func marketFrame(key string, ltp float64, ltt int64, cp, vtt, oi float64) []byte {
	var market []byte
	market = appendSubmessage(market, fnMarketLTPC, ltpcBytes(ltp, ltt, cp))
	market = appendDouble(market, fnMarketVTT, vtt)
	market = appendDouble(market, fnMarketOI, oi)

	var full []byte
	full = appendSubmessage(full, fnFullFeedMarket, market)

	var feed []byte
	feed = appendSubmessage(feed, fnFeedFullFeed, full)

	return frameOf(key, feed)
}

// indexFrame builds a full FeedResponse with one index entry.
func indexFrame(key string, ltp float64, ltt int64, cp float64) []byte {
	var index []byte
	index = appendSubmessage(index, fnIndexLTPC, ltpcBytes(ltp, ltt, cp))

	var full []byte
	full = appendSubmessage(full, fnFullFeedIndex, index)

	var feed []byte
	feed = appendSubmessage(feed, fnFeedFullFeed, full)

	return frameOf(key, feed)
}

func frameOf(key string, feed []byte) []byte {
	var entry []byte
	entry = appendSubmessage(entry, fnMapKey, []byte(key))
	entry = appendSubmessage(entry, fnMapValue, feed)

	var frame []byte
	frame = appendSubmessage(frame, fnFeedResponseFeeds, entry)
	return frame
}

func TestDecodeOptionFeed(t *testing.T) {
	d := NewDecoder("NSE_FO")
	key := "NSE_FO|NIFTY25MAY23000CE"
	raw := marketFrame(key, 123.45, 1714989000000, 120.5, 500, 10000)

	entries, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry, ok := entries[key]
	if !ok {
		t.Fatalf("entry for %q missing", key)
	}
	if entry.Kind != models.FeedOption {
		t.Fatalf("kind = %s, want option", entry.Kind)
	}
	if entry.StrikePrice != 23000 {
		t.Fatalf("strike = %v, want 23000", entry.StrikePrice)
	}
	if entry.OptionType != models.OptionTypeCall {
		t.Fatalf("option type = %s, want CALL", entry.OptionType)
	}
	if entry.LTP != 123.45 {
		t.Fatalf("ltp = %v", entry.LTP)
	}
	if entry.LastTradeTime != 1714989000000 {
		t.Fatalf("ltt = %v", entry.LastTradeTime)
	}
	if entry.LastClose != 120.5 {
		t.Fatalf("cp = %v", entry.LastClose)
	}
	if entry.Volume != 500 {
		t.Fatalf("volume = %v", entry.Volume)
	}
	if entry.OpenInterest != 10000 {
		t.Fatalf("oi = %v", entry.OpenInterest)
	}
}

func TestDecodePutOption(t *testing.T) {
	d := NewDecoder("NSE_FO")
	key := "NSE_FO|BANKNIFTY24DEC51000PE"
	raw := marketFrame(key, 88, 0, 90, 0, 0)

	entries, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry := entries[key]
	if entry.Kind != models.FeedOption {
		t.Fatalf("kind = %s, want option", entry.Kind)
	}
	if entry.StrikePrice != 51000 || entry.OptionType != models.OptionTypePut {
		t.Fatalf("got strike %v type %s", entry.StrikePrice, entry.OptionType)
	}
}

func TestDecodeIndexFeed(t *testing.T) {
	d := NewDecoder("NSE_FO")
	key := "NSE_INDEX|Nifty 50"
	raw := indexFrame(key, 22500.25, 1714989000000, 22480)

	entries, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry := entries[key]
	if entry.Kind != models.FeedIndex {
		t.Fatalf("kind = %s, want index", entry.Kind)
	}
	if entry.LTP != 22500.25 || entry.LastClose != 22480 {
		t.Fatalf("ltp %v cp %v", entry.LTP, entry.LastClose)
	}
	if entry.StrikePrice != 0 || entry.OptionType != "" {
		t.Fatalf("index entry carries option fields")
	}
}

func TestDecodeEquityKind(t *testing.T) {
	d := NewDecoder("NSE_FO")
	key := "NSE_EQ|INE002A01018"
	raw := marketFrame(key, 2500, 0, 2490, 100, 0)

	entries, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries[key].Kind != models.FeedEquity {
		t.Fatalf("kind = %s, want equity", entries[key].Kind)
	}
}

func TestDecodeMultipleEntries(t *testing.T) {
	d := NewDecoder("NSE_FO")
	a := marketFrame("NSE_FO|NIFTY25MAY23000CE", 100, 0, 99, 0, 0)
	b := indexFrame("NSE_INDEX|Nifty 50", 22500, 0, 22480)

	entries, err := d.Decode(append(a, b...))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	d := NewDecoder("NSE_FO")
	_, err := d.Decode([]byte{0xFF, 0xFF, 0xFF})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, models.ErrMalformedFeed) {
		t.Fatalf("error %v does not wrap malformed-feed", err)
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	d := NewDecoder("NSE_FO")
	entries, err := d.Decode(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries")
	}
}

func TestParseOptionKey(t *testing.T) {
	tests := []struct {
		key    string
		strike float64
		ot     models.OptionType
		ok     bool
	}{
		{"NSE_FO|NIFTY25MAY23000CE", 23000, models.OptionTypeCall, true},
		{"NSE_FO|BANKNIFTY24DEC51000PE", 51000, models.OptionTypePut, true},
		{"NSE_FO|NIFTYFUT", 0, "", false},
		{"NSE_FO|WEIRDCE", 0, "", false},
	}
	for _, tt := range tests {
		strike, ot, ok := parseOptionKey(tt.key)
		if ok != tt.ok || strike != tt.strike || ot != tt.ot {
			t.Fatalf("%s: got (%v, %s, %v), want (%v, %s, %v)",
				tt.key, strike, ot, ok, tt.strike, tt.ot, tt.ok)
		}
	}
}
