// ws.go implements a best-effort top-of-book push feed, a cache warmer
// (see DESIGN.md's Open Question #1 decision). REST (Client.GetTopOfBook)
// remains the documented, authoritative path; this feed only keeps a
// cache warm so callers can skip the network round trip when a recent
// enough push update is available.
//
// Reconnection uses exponential backoff (1s -> 30s cap), a read deadline
// that forces reconnection on silent failure, and a ping goroutine to keep
// the connection alive. This venue needs only a single top-of-book push
// channel, unlike venues that also stream user fills/order events.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// topOfBookEvent is the push message shape: best bid/ask in wire (10^-8)
// units, matching the REST receipt's BestBid/BestAsk encoding.
type topOfBookEvent struct {
	MarketID string `json:"market_id"`
	BestBid  int64  `json:"best_bid"`
	BestAsk  int64  `json:"best_ask"`
}

// TopOfBookCache is the warm cache the feed maintains. Client.GetTopOfBook
// reads it first; a cache miss or staleness falls back to REST.
type TopOfBookCache struct {
	mu        sync.RWMutex
	bid, ask  decimal.Decimal
	updatedAt time.Time
	maxAge    time.Duration
}

// NewTopOfBookCache returns an empty cache with the given staleness bound.
func NewTopOfBookCache(maxAge time.Duration) *TopOfBookCache {
	return &TopOfBookCache{maxAge: maxAge}
}

// Get returns the cached bid/ask if fresh enough.
func (c *TopOfBookCache) Get() (bid, ask decimal.Decimal, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updatedAt.IsZero() || time.Since(c.updatedAt) > c.maxAge {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return c.bid, c.ask, true
}

func (c *TopOfBookCache) set(bid, ask decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bid, c.ask = bid, ask
	c.updatedAt = time.Now()
}

// TopOfBookFeed is a single WebSocket connection pushing top-of-book
// updates for one market into a TopOfBookCache.
type TopOfBookFeed struct {
	url      string
	marketID string
	cache    *TopOfBookCache

	connMu sync.Mutex
	conn   *websocket.Conn

	logger *slog.Logger
}

// NewTopOfBookFeed builds a feed bound to one market, writing into cache.
func NewTopOfBookFeed(wsURL, marketID string, cache *TopOfBookCache, logger *slog.Logger) *TopOfBookFeed {
	return &TopOfBookFeed{
		url:      wsURL,
		marketID: marketID,
		cache:    cache,
		logger:   logger.With("component", "ws_top_of_book"),
	}
}

// Run connects and maintains the feed with auto-reconnect. It blocks until
// ctx is cancelled; callers run it in its own goroutine. Any error here is
// informational: the adapter keeps serving top-of-book via REST regardless
// of this feed's health.
func (f *TopOfBookFeed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("top-of-book feed disconnected, reconnecting",
			"error", &FeedUnavailableError{Cause: err},
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close gracefully closes the connection.
func (f *TopOfBookFeed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *TopOfBookFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	sub, _ := json.Marshal(struct {
		Operation string `json:"operation"`
		MarketID  string `json:"market_id"`
	}{Operation: "subscribe_top_of_book", MarketID: f.marketID})
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Info("top-of-book feed connected", "market_id", f.marketID)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var evt topOfBookEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			f.logger.Debug("ignoring non-json ws message", "data", string(msg))
			continue
		}
		f.cache.set(fromWireUnits(evt.BestBid), fromWireUnits(evt.BestAsk))
	}
}

func (f *TopOfBookFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Debug("ping failed", "err", err)
				return
			}
		}
	}
}
