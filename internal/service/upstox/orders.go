package upstox

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"PromptTrader/internal/domain/models"
)

// OrderClient submits intraday market orders to the broker's v2 order API.
type OrderClient struct {
	http *resty.Client
}

// placeOrderRequest mirrors the venue's order payload. Market orders carry
// price 0 and no trigger.
type placeOrderRequest struct {
	Quantity          int     `json:"quantity"`
	Product           string  `json:"product"`
	Validity          string  `json:"validity"`
	Price             float64 `json:"price"`
	Tag               string  `json:"tag"`
	InstrumentToken   string  `json:"instrument_token"`
	OrderType         string  `json:"order_type"`
	TransactionType   string  `json:"transaction_type"`
	DisclosedQuantity int     `json:"disclosed_quantity"`
	TriggerPrice      float64 `json:"trigger_price"`
	IsAMO             bool    `json:"is_amo"`
}

type placeOrderResponse struct {
	Status string `json:"status"`
	Data   struct {
		OrderID string `json:"order_id"`
	} `json:"data"`
}

// NewOrderClient builds the order API client. A missing token is startup
// fatal; every order call would fail anyway.
func NewOrderClient(baseURL, accessToken string, timeout time.Duration) (*OrderClient, error) {
	if accessToken == "" {
		return nil, models.ErrNoToken
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(accessToken).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &OrderClient{http: c}, nil
}

// PlaceOrder submits an intraday, single-leg market order. Any transport or
// venue failure returns an error wrapping ErrVenueRejected; the executor
// records it as REJECTED and never retries.
func (c *OrderClient) PlaceOrder(ctx context.Context, instrumentKey string, side models.SignalType, quantity int) (string, error) {
	req := placeOrderRequest{
		Quantity:        quantity,
		Product:         "I",
		Validity:        "DAY",
		Price:           0,
		Tag:             "prompt-trader",
		InstrumentToken: instrumentKey,
		OrderType:       "MARKET",
		TransactionType: string(side),
	}

	var out placeOrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/order/place")
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrVenueRejected, err)
	}
	if resp.IsError() || out.Status != "success" || out.Data.OrderID == "" {
		return "", fmt.Errorf("%w: http %d status %q", models.ErrVenueRejected, resp.StatusCode(), out.Status)
	}
	return out.Data.OrderID, nil
}
