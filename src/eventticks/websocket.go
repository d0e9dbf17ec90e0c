package eventticks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

type tickDTO struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// WebsocketTickSource streams ticks from an upstream market data feed over
// a websocket and pushes them into a sink. The connection is re-dialed on
// read errors; the source never stops the pipeline on a single bad frame.
type WebsocketTickSource struct {
	url          string
	readDeadline time.Duration
}

func NewWebsocketTickSource(url string) *WebsocketTickSource {
	return &WebsocketTickSource{
		url:          url,
		readDeadline: 30 * time.Second,
	}
}

func (w *WebsocketTickSource) connect() (*websocket.Conn, error) {
	log.Infof("WebsocketTickSource: connecting to %s", w.url)

	conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("WebsocketTickSource.connect: failed to dial %s: %w", w.url, err)
	}

	return conn, nil
}

// Run blocks until ctx is cancelled, pushing every decoded tick into sink.
func (w *WebsocketTickSource) Run(ctx context.Context, sink func(eventmodels.Tick)) error {
	conn, err := w.connect()
	if err != nil {
		return fmt.Errorf("WebsocketTickSource.Run: initial connect failed: %w", err)
	}

	// Deferred as a closure so the connection live at exit is the one that
	// gets closed, not the one from before a reconnect.
	defer func() {
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().UTC().Add(w.readDeadline))
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Errorf("WebsocketTickSource: read failed: %v", err)

			newConn, connErr := w.connect()
			if connErr != nil {
				log.Errorf("WebsocketTickSource: reconnect failed: %v", connErr)
				time.Sleep(time.Second)
				continue
			}

			if closeErr := conn.Close(); closeErr != nil {
				log.Errorf("WebsocketTickSource: error closing old connection: %v", closeErr)
			}

			conn = newConn
			continue
		}

		var dto tickDTO
		if err := json.Unmarshal(message, &dto); err != nil {
			log.Errorf("WebsocketTickSource: failed to unmarshal tick: %v", err)
			continue
		}

		sink(eventmodels.Tick{
			Symbol:    dto.Symbol,
			Price:     dto.Price,
			Volume:    dto.Volume,
			Timestamp: time.UnixMilli(dto.Timestamp).UTC(),
		})
	}
}
