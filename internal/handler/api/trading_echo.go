package api

import (
	"time"

	domrepo "PromptTrader/internal/domain/repository"
	xhttp "PromptTrader/pkg/http"
	xlogger "PromptTrader/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Connectable reports feed connectivity for the health endpoint.
type Connectable interface {
	IsConnected() bool
}

// TradingEchoHandler exposes the read API over the trading stores.
type TradingEchoHandler struct {
	logger  *xlogger.Logger
	ticks   domrepo.TickStore
	signals domrepo.SignalStore
	orders  domrepo.OrderStore
	feed    Connectable
}

func NewTradingEchoHandler(
	logger *xlogger.Logger,
	ticks domrepo.TickStore,
	signals domrepo.SignalStore,
	orders domrepo.OrderStore,
	feed Connectable,
) *TradingEchoHandler {
	return &TradingEchoHandler{logger: logger, ticks: ticks, signals: signals, orders: orders, feed: feed}
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.GET("/orders", h.Orders)
}

type signalsRequest struct {
	InstrumentKey string `query:"instrument_key" validate:"required"`
	From          string `query:"from"`
	To            string `query:"to"`
	Limit         int    `query:"limit" default:"100" validate:"gte=0,lte=1000"`
}

func (h *TradingEchoHandler) Signals(c echo.Context) error {
	req := &signalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(req.To, now)

	rows, err := h.signals.Query(c.Request().Context(), req.InstrumentKey, from, to, req.Limit)
	if err != nil {
		h.logger.Error("signals query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

type ordersRequest struct {
	From  string `query:"from"`
	To    string `query:"to"`
	Limit int    `query:"limit" default:"100" validate:"gte=0,lte=1000"`
}

func (h *TradingEchoHandler) Orders(c echo.Context) error {
	req := &ordersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(req.To, now)

	rows, err := h.orders.Query(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("orders query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

type healthStatus struct {
	Store string `json:"store"`
	Feed  string `json:"feed"`
}

func (h *TradingEchoHandler) Health(c echo.Context) error {
	status := healthStatus{Store: "ok", Feed: "ok"}
	if err := h.ticks.Health(c.Request().Context()); err != nil {
		status.Store = "down"
	}
	if h.feed != nil && !h.feed.IsConnected() {
		status.Feed = "disconnected"
	}
	return xhttp.SuccessResponse(c, status)
}
