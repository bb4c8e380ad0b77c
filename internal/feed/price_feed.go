// Package feed consumes a real-time market data WebSocket and keeps the
// price cache current so the trading service can value positions without
// touching the features store.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/modacrypto/modabot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// PriceFeed connects to a market data WebSocket, subscribes to ticker updates
// for the configured token IDs, and writes each tick into the price cache.
// It reconnects with exponential backoff on disconnect.
type PriceFeed struct {
	wsURL  string
	tokens []string
	cache  domain.PriceCache
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewPriceFeed creates a feed that will subscribe to the given token IDs.
func NewPriceFeed(wsURL string, tokens []string, cache domain.PriceCache, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		wsURL:  wsURL,
		tokens: tokens,
		cache:  cache,
		logger: logger.With(slog.String("component", "price_feed")),
		done:   make(chan struct{}),
	}
}

// Run connects, subscribes, and pumps ticks into the cache until ctx is
// cancelled or Close is called. Reconnects with exponential backoff.
func (f *PriceFeed) Run(ctx context.Context) error {
	if len(f.tokens) == 0 {
		f.logger.Info("no tokens to subscribe, exiting")
		return nil
	}

	b := &backoff.Backoff{
		Min:    2 * time.Second,
		Max:    60 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx, b)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := b.Duration()
		f.logger.Warn("price feed disconnected, reconnecting",
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
	}
}

// Close stops the feed.
func (f *PriceFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// subscribeCommand is the wire format for subscription requests.
type subscribeCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Tokens  []string `json:"tokens"`
}

// tickMessage is one ticker update. Price arrives as a decimal string.
type tickMessage struct {
	Channel string `json:"channel"`
	TokenID string `json:"token_id"`
	Price   string `json:"price"`
	TS      int64  `json:"ts"`
}

func (f *PriceFeed) runConnection(ctx context.Context, b *backoff.Backoff) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	cmd := subscribeCommand{
		Type:    "subscribe",
		Channel: "ticker",
		Tokens:  f.tokens,
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("feed: marshal subscribe: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("price feed subscribed", slog.Int("tokens", len(f.tokens)))
	b.Reset()

	// Ping loop keeps the connection alive while the read loop blocks below.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w (%w)", err, domain.ErrWSDisconnect)
		}

		f.handleMessage(ctx, message)
	}
}

// handleMessage parses a raw ticker message and writes it to the cache.
// Unparseable messages are silently dropped.
func (f *PriceFeed) handleMessage(ctx context.Context, raw []byte) {
	var tick tickMessage
	if err := json.Unmarshal(raw, &tick); err != nil {
		return
	}
	if tick.Channel != "ticker" || tick.TokenID == "" {
		return
	}

	price, err := strconv.ParseFloat(tick.Price, 64)
	if err != nil || price <= 0 {
		return
	}

	ts := time.Now()
	if tick.TS > 0 {
		ts = time.UnixMilli(tick.TS)
	}

	if err := f.cache.SetPrice(ctx, tick.TokenID, price, ts); err != nil {
		f.logger.Warn("cache price update failed",
			slog.String("token_id", tick.TokenID),
			slog.String("error", err.Error()),
		)
	}
}
