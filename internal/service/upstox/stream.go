package upstox

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
)

// Stream implements a MarketStream over the broker's binary websocket feed.
// mu guards conn and connected: the consume goroutine reconnects while the
// ping loop and the health endpoint read connection state, and websocket
// connections allow only one concurrent writer.
type Stream struct {
	accessToken    string
	websocketURL   string
	instrumentKeys []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// subRequest is the single JSON control message sent after connect.
type subRequest struct {
	GUID   string `json:"guid"`
	Method string `json:"method"`
	Data   struct {
		Mode           string   `json:"mode"`
		InstrumentKeys []string `json:"instrumentKeys"`
	} `json:"data"`
}

// NewStream creates a broker feed stream. The access token comes from the
// auth collaborator; without it every feed connect would be refused, so its
// absence is fatal here rather than at first use.
func NewStream(accessToken, websocketURL string, instrumentKeys []string, reconnectDelay, pingInterval time.Duration) (drepo.MarketStream, error) {
	if accessToken == "" {
		return nil, models.ErrNoToken
	}
	return &Stream{
		accessToken:    accessToken,
		websocketURL:   websocketURL,
		instrumentKeys: instrumentKeys,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}, nil
}

// Connect establishes the websocket connection with bearer auth.
func (s *Stream) Connect(ctx context.Context) error {
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+s.accessToken)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, hdr)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Subscribe sends the full-mode subscription handshake for the configured
// instruments.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("feed not connected")
	}
	req := subRequest{GUID: "market-data-feed", Method: "sub"}
	req.Data.Mode = "full"
	req.Data.InstrumentKeys = s.instrumentKeys
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("feed subscribe: %w", err)
	}
	return nil
}

// current snapshots the connection under the lock.
func (s *Stream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Read streams raw binary frames and errors off the current connection. Both
// channels close when the read loop dies; the caller reconnects and calls
// Read again for the new connection. Text frames (control acks) are skipped;
// decode happens downstream.
func (s *Stream) Read(ctx context.Context) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	// ping loop, scoped to this read generation
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
				s.mu.Unlock()
			}
		}
	}()

	// read loop
	go func() {
		defer close(done)
		defer close(frames)
		defer close(errs)
		conn := s.current()
		if conn == nil {
			errs <- fmt.Errorf("feed conn nil")
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				mt, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				if mt != websocket.BinaryMessage {
					continue
				}
				select {
				case frames <- b:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return frames, errs
}

// Reconnect closes and re-establishes the connection and subscription.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the websocket connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.connected = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
