// Package feed connects to an exchange trade-stream WebSocket and publishes
// price updates to the rest of the engine. Each update carries the instrument
// symbol and the last trade price; consumers (price cache, pending-order
// worker, liquidation monitor) register a handler and react per tick.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// PriceUpdate is a single last-trade price tick for an instrument.
type PriceUpdate struct {
	Symbol string
	Price  float64
	At     time.Time
}

// PriceHandler is called for each price update received from the stream.
type PriceHandler func(ctx context.Context, update PriceUpdate)

// MarketFeed subscribes to the combined trade stream for the configured
// symbols and invokes the handler on every tick. It reconnects with
// exponential backoff on disconnect and keeps the connection alive with
// ping/pong deadlines.
type MarketFeed struct {
	wsURL   string
	symbols []string
	onPrice PriceHandler
	logger  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewMarketFeed creates a feed for the given symbols. wsURL is the exchange
// combined-stream endpoint, e.g. "wss://stream.binance.com:9443".
func NewMarketFeed(wsURL string, symbols []string, onPrice PriceHandler, logger *slog.Logger) *MarketFeed {
	return &MarketFeed{
		wsURL:   wsURL,
		symbols: symbols,
		onPrice: onPrice,
		logger:  logger.With(slog.String("component", "market_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects and consumes the trade stream until ctx is cancelled or Close
// is called. Reconnects with exponential backoff on disconnect.
func (f *MarketFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to subscribe, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("market feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close stops the feed.
func (f *MarketFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// runConnection dials the stream, starts the ping loop, and reads messages
// until the connection drops or the feed is stopped. A successful graceful
// shutdown returns nil; a dropped connection returns the read error so Run
// can reconnect.
func (f *MarketFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	f.logger.Info("market feed connected", slog.Int("symbols", len(f.symbols)))

	pingDone := make(chan struct{})
	defer close(pingDone)
	go f.pingLoop(conn, pingDone)

	for {
		select {
		case <-ctx.Done():
			f.sendClose(conn)
			return nil
		case <-f.done:
			f.sendClose(conn)
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}

		f.handleMessage(ctx, message)
	}
}

// pingLoop sends periodic ping messages to keep the connection alive.
func (f *MarketFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-f.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *MarketFeed) sendClose(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

// streamURL builds the combined-stream URL, one <symbol>@trade stream per
// configured symbol.
func (f *MarketFeed) streamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		streams = append(streams, strings.ToLower(s)+"@trade")
	}
	return strings.TrimRight(f.wsURL, "/") + "/stream?streams=" + strings.Join(streams, "/")
}

// tradeEvent is the payload of a combined-stream trade message. Prices arrive
// as strings on the wire.
type tradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// handleMessage parses a combined-stream envelope and dispatches the trade to
// the registered handler. Malformed or non-trade messages are logged at debug
// level and skipped; a bad tick must never bring the feed down.
func (f *MarketFeed) handleMessage(ctx context.Context, raw []byte) {
	var envelope struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Data) == 0 {
		f.logger.Debug("skipping unparseable message")
		return
	}

	var trade tradeEvent
	if err := json.Unmarshal(envelope.Data, &trade); err != nil {
		f.logger.Debug("skipping unparseable trade payload", slog.String("stream", envelope.Stream))
		return
	}
	if trade.EventType != "trade" || trade.Symbol == "" {
		return
	}

	price, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil || price <= 0 {
		f.logger.Debug("skipping trade with invalid price",
			slog.String("symbol", trade.Symbol),
			slog.String("price", trade.Price),
		)
		return
	}

	if f.onPrice != nil {
		f.onPrice(ctx, PriceUpdate{
			Symbol: strings.ToUpper(trade.Symbol),
			Price:  price,
			At:     time.UnixMilli(trade.TradeTime),
		})
	}
}
