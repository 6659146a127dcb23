package upstox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"PromptTrader/pkg/cache"
)

// InstrumentClient resolves instrument metadata from the broker's
// instrument master. The feed cannot carry the expiry date, so it must come
// from here rather than being guessed from the key.
type InstrumentClient struct {
	http  *resty.Client
	cache cache.Service
	ttl   time.Duration
}

type instrumentResponse struct {
	Status string `json:"status"`
	Data   struct {
		Expiry string `json:"expiry"` // YYYY-MM-DD
	} `json:"data"`
}

// NewInstrumentClient builds the metadata client. cache may be nil, in
// which case every lookup hits the API.
func NewInstrumentClient(baseURL string, c cache.Service, timeout, ttl time.Duration) *InstrumentClient {
	return &InstrumentClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		cache: c,
		ttl:   ttl,
	}
}

// Expiry returns the contract expiry date for a derivative instrument.
// Metadata is immutable for a contract's lifetime, so hits are cached.
func (c *InstrumentClient) Expiry(ctx context.Context, instrumentKey string) (time.Time, error) {
	key := "meta:expiry:" + instrumentKey

	if c.cache != nil {
		var cached string
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return time.Parse("2006-01-02", cached)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			// cache trouble is not worth failing the lookup over
			_ = err
		}
	}

	var out instrumentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/market/instruments/" + url.PathEscape(instrumentKey))
	if err != nil {
		return time.Time{}, fmt.Errorf("instrument lookup: %w", err)
	}
	if resp.IsError() || out.Data.Expiry == "" {
		return time.Time{}, fmt.Errorf("instrument lookup: http %d, no expiry for %s", resp.StatusCode(), instrumentKey)
	}

	expiry, err := time.Parse("2006-01-02", out.Data.Expiry)
	if err != nil {
		return time.Time{}, fmt.Errorf("instrument lookup: bad expiry %q: %w", out.Data.Expiry, err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, out.Data.Expiry, c.ttl)
	}
	return expiry, nil
}
