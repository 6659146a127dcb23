package upstox

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"google.golang.org/protobuf/encoding/protowire"

	"PromptTrader/internal/domain/models"
)

// The feed is protobuf-framed. Only the subset of the broker's
// MarketDataFeed schema the pipeline needs is decoded, straight off the wire
// with protowire instead of generated code:
//
//	FeedResponse   { map<string, Feed> feeds = 2; int64 current_ts = 3; }
//	Feed           { FullFeed ff = 2; }
//	FullFeed       { MarketFullFeed market_ff = 1; IndexFullFeed index_ff = 2; }
//	MarketFullFeed { LTPC ltpc = 1; MarketLevel market_level = 2; double vtt = 6; double oi = 7; }
//	IndexFullFeed  { LTPC ltpc = 1; }
//	LTPC           { double ltp = 1; int64 ltt = 2; int64 ltq = 3; double cp = 4; }
//
// Index and equity/derivative instruments arrive under different FullFeed
// branches; the decoder tries both and takes whichever is present.
const (
	fnFeedResponseFeeds = 2

	fnFeedFullFeed = 2

	fnFullFeedMarket = 1
	fnFullFeedIndex  = 2

	fnMarketLTPC = 1
	fnMarketVTT  = 6
	fnMarketOI   = 7

	fnIndexLTPC = 1

	fnLTPCLtp = 1
	fnLTPCLtt = 2
	fnLTPCCp  = 4

	fnMapKey   = 1
	fnMapValue = 2
)

// Decoder decodes raw feed frames into tagged per-instrument entries. The
// variant (index / equity / option) is resolved here, once, so downstream
// code never re-inspects nested payloads.
type Decoder struct {
	optionPrefix string
}

// NewDecoder creates a feed decoder. optionPrefix is the instrument-key
// segment prefix that marks option contracts, e.g. "NSE_FO|".
func NewDecoder(optionPrefix string) *Decoder {
	return &Decoder{optionPrefix: optionPrefix}
}

// Decode parses one binary frame into a map of instrument key to entry.
// Any wire-level inconsistency fails the whole frame with ErrMalformedFeed;
// the feed loop logs and skips it.
func (d *Decoder) Decode(raw []byte) (map[string]models.FeedEntry, error) {
	entries := make(map[string]models.FeedEntry)

	err := eachField(raw, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		if num != fnFeedResponseFeeds || typ != protowire.BytesType {
			return nil
		}
		key, entry, err := d.parseFeedsEntry(payload)
		if err != nil {
			return err
		}
		if key != "" {
			entries[key] = entry
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedFeed, err)
	}
	return entries, nil
}

// parseFeedsEntry decodes one map<string, Feed> entry.
func (d *Decoder) parseFeedsEntry(b []byte) (string, models.FeedEntry, error) {
	var key string
	var feedBytes []byte

	err := eachField(b, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		switch {
		case num == fnMapKey && typ == protowire.BytesType:
			key = string(payload)
		case num == fnMapValue && typ == protowire.BytesType:
			feedBytes = payload
		}
		return nil
	})
	if err != nil {
		return "", models.FeedEntry{}, err
	}
	if key == "" || feedBytes == nil {
		return "", models.FeedEntry{}, nil
	}

	entry, err := d.parseFeed(key, feedBytes)
	return key, entry, err
}

func (d *Decoder) parseFeed(key string, b []byte) (models.FeedEntry, error) {
	entry := models.FeedEntry{Kind: models.FeedEquity, InstrumentKey: key}

	err := eachField(b, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		if num != fnFeedFullFeed || typ != protowire.BytesType {
			return nil
		}
		return d.parseFullFeed(&entry, payload)
	})
	if err != nil {
		return entry, err
	}

	if entry.Kind != models.FeedIndex && strings.HasPrefix(key, d.optionPrefix) {
		if strike, ot, ok := parseOptionKey(key); ok {
			entry.Kind = models.FeedOption
			entry.StrikePrice = strike
			entry.OptionType = ot
		}
	}
	return entry, nil
}

func (d *Decoder) parseFullFeed(entry *models.FeedEntry, b []byte) error {
	return eachField(b, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		switch {
		case num == fnFullFeedMarket && typ == protowire.BytesType:
			return parseMarketFull(entry, payload)
		case num == fnFullFeedIndex && typ == protowire.BytesType:
			entry.Kind = models.FeedIndex
			return parseIndexFull(entry, payload)
		}
		return nil
	})
}

func parseMarketFull(entry *models.FeedEntry, b []byte) error {
	return eachField(b, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		switch {
		case num == fnMarketLTPC && typ == protowire.BytesType:
			return parseLTPC(entry, payload)
		case num == fnMarketVTT && typ == protowire.Fixed64Type:
			entry.Volume = int64(asFloat(scalar))
		case num == fnMarketOI && typ == protowire.Fixed64Type:
			entry.OpenInterest = int64(asFloat(scalar))
		}
		return nil
	})
}

func parseIndexFull(entry *models.FeedEntry, b []byte) error {
	return eachField(b, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		if num == fnIndexLTPC && typ == protowire.BytesType {
			return parseLTPC(entry, payload)
		}
		return nil
	})
}

func parseLTPC(entry *models.FeedEntry, b []byte) error {
	return eachField(b, func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error {
		switch {
		case num == fnLTPCLtp && typ == protowire.Fixed64Type:
			entry.LTP = asFloat(scalar)
		case num == fnLTPCLtt && typ == protowire.VarintType:
			entry.LastTradeTime = int64(scalar)
		case num == fnLTPCCp && typ == protowire.Fixed64Type:
			entry.LastClose = asFloat(scalar)
		}
		return nil
	})
}

// eachField walks one message's fields. Length-delimited payloads arrive in
// payload, varint/fixed scalars in scalar.
func eachField(b []byte, fn func(num protowire.Number, payload []byte, scalar uint64, typ protowire.Type) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var (
			payload []byte
			scalar  uint64
		)
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			scalar, n = v, m
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			scalar, n = v, m
		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			scalar, n = uint64(v), m
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			payload, n = v, m
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			n = m
		}

		if err := fn(num, payload, scalar, typ); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func asFloat(bits uint64) float64 {
	return math.Float64frombits(bits)
}

// parseOptionKey extracts strike and option side from the trailing
// characters of a derivative key, e.g. "NSE_FO|NIFTY25MAY23000CE" ->
// (23000, CALL). This is a fallback for when the instrument-metadata lookup
// has nothing better; non-standard key formats simply fail the parse.
func parseOptionKey(key string) (float64, models.OptionType, bool) {
	var ot models.OptionType
	switch {
	case strings.HasSuffix(key, "CE"):
		ot = models.OptionTypeCall
	case strings.HasSuffix(key, "PE"):
		ot = models.OptionTypePut
	default:
		return 0, "", false
	}

	body := key[:len(key)-2]
	end := len(body)
	start := end
	for start > 0 && unicode.IsDigit(rune(body[start-1])) {
		start--
	}
	if start == end {
		return 0, "", false
	}

	var strike float64
	for _, r := range body[start:end] {
		strike = strike*10 + float64(r-'0')
	}
	return strike, ot, true
}
