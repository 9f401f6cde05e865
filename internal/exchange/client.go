// Package exchange implements the adapter for a venue's length-prefixed,
// signed request/response protocol: ensure_session, place_order,
// cancel_order, get_top_of_book, and receipt decoding.
//
// The REST client wraps resty with rate limiting, retry-on-5xx, and a
// dry-run short-circuit.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"gridmm/internal/signer"
	"gridmm/internal/tracker"
	"gridmm/internal/wire"
	"gridmm/pkg/types"
)

// Client is the venue adapter. It owns the session record and the rate
// limiter; the Tracker it is given is also exclusively mutated from here —
// no other component writes to the session or the tracker.
type Client struct {
	http     *resty.Client
	identity *signer.Signer
	sess     *session
	rl       *RateLimiter
	tracker  *tracker.Tracker
	tobCache *TopOfBookCache
	dryRun   bool
	logger   *slog.Logger

	posMu        sync.RWMutex
	position     decimal.Decimal
	havePosition bool
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithDryRun makes mutating operations (place/cancel) log and return a
// synthetic success instead of issuing a network call.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) { c.dryRun = dryRun }
}

// WithTopOfBookCache wires a push-feed-warmed cache into GetTopOfBook.
// REST remains authoritative: the cache is consulted first as a latency
// optimization, and any cache miss or staleness falls through to the
// network call below.
func WithTopOfBookCache(cache *TopOfBookCache) Option {
	return func(c *Client) { c.tobCache = cache }
}

// NewClient builds a Client bound to one venue base URL and identity key.
// renewBefore is configurable rather than hardcoded (see DESIGN.md Open
// Question decision #3). The session's expiry is taken from the venue's
// create_session receipt; no session lifetime is passed in here.
func NewClient(baseURL string, identity *signer.Signer, tr *tracker.Tracker, renewBefore time.Duration, logger *slog.Logger, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/octet-stream")

	c := &Client{
		http:     httpClient,
		identity: identity,
		sess:     newSessionHolder(renewBefore),
		rl:       NewRateLimiter(),
		tracker:  tr,
		logger:   logger.With("component", "exchange"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Position returns the last position heartbeat observed on any receipt, per
// the data model's "updated out-of-band ... heartbeat field in receipts"
// rule. ok is false until the first heartbeat arrives.
func (c *Client) Position() (decimal.Decimal, bool) {
	c.posMu.RLock()
	defer c.posMu.RUnlock()
	return c.position, c.havePosition
}

func (c *Client) recordPositionHeartbeat(r *receipt) {
	pos, ok := positionFromReceipt(r)
	if !ok {
		return
	}
	c.posMu.Lock()
	c.position = pos
	c.havePosition = true
	c.posMu.Unlock()
}

// send frames, signs, and posts payload to path, returning the decoded
// receipt. signFn chooses user-sign or session-sign per §4.2.
func (c *Client) send(ctx context.Context, bucket *TokenBucket, path string, payload []byte, signFn func([]byte) ([]byte, error)) (*receipt, error) {
	if err := bucket.Wait(ctx); err != nil {
		return nil, &TransportError{Op: path, Cause: err}
	}

	m := wire.BuildMessage(payload)
	sig, err := signFn(m)
	if err != nil {
		return nil, &AuthFailureError{Detail: "sign request", Cause: err}
	}
	frame := wire.AppendSignature(m, sig)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(frame).
		Post(path)
	if err != nil {
		return nil, &TransportError{Op: path, Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &TransportError{Op: path, Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}

	body, err := wire.DecodeReceipt(resp.Body())
	if err != nil {
		return nil, err
	}
	r, err := decodeReceiptBody(body)
	if err != nil {
		return nil, err
	}
	if outErr := outcomeError(r); outErr != nil {
		return r, outErr
	}
	c.recordPositionHeartbeat(r)
	return r, nil
}

// EnsureSession is idempotent: a no-op if a valid non-near-expiry session
// already exists. On any failure the holder falls back to None rather than
// sticking in Creating, so the next call retries create_session instead of
// falsely reporting a live session.
func (c *Client) EnsureSession(ctx context.Context) error {
	if !c.sess.needsRenewal(time.Now()) {
		return nil
	}
	c.sess.beginCreating()

	eph, err := signer.NewEphemeral()
	if err != nil {
		c.sess.invalidate()
		return fmt.Errorf("exchange: generate ephemeral session key: %w", err)
	}

	payload, err := marshalAction(createSessionAction{
		Kind:          actionCreateSession,
		SessionPubKey: eph.PublicKeyHex(),
		RequestedAt:   time.Now().UnixMicro(),
	})
	if err != nil {
		c.sess.invalidate()
		return err
	}

	// send already classifies the failure (TransportError for a network
	// problem, AuthFailureError for a rejected signature); propagate its
	// kind as-is rather than relabeling every failure as AuthFailure.
	r, err := c.send(ctx, c.rl.Session, "/session", payload, c.identity.UserSign)
	if err != nil {
		c.sess.invalidate()
		c.logger.Error("create_session failed", "err", err)
		return err
	}

	expiresAt := time.UnixMicro(r.ExpiresMicro)
	c.sess.commit(r.SessionID, eph, expiresAt)
	c.logger.Info("session established", "session_id", r.SessionID, "expires_at", expiresAt)
	return nil
}

// sendWithRetry runs fn against the current session. If fn observes
// SessionExpired, the session is invalidated and re-established once via
// EnsureSession, and fn is retried exactly once with the new session. A
// second SessionExpired within the same call is a hard failure: repeated
// expiry within one tick does not self-heal.
func (c *Client) sendWithRetry(ctx context.Context, fn func(sessionID string, eph *signer.Signer) (*receipt, error)) (*receipt, error) {
	sessionID, eph, ok := c.sess.current()
	if !ok {
		if err := c.EnsureSession(ctx); err != nil {
			return nil, err
		}
		sessionID, eph, ok = c.sess.current()
		if !ok {
			return nil, &SessionExpiredError{}
		}
	}

	r, err := fn(sessionID, eph)
	if err == nil {
		return r, nil
	}
	var expired *SessionExpiredError
	if !errors.As(err, &expired) {
		return nil, err
	}

	c.sess.invalidate()
	if err := c.EnsureSession(ctx); err != nil {
		return nil, err
	}
	sessionID, eph, ok = c.sess.current()
	if !ok {
		return nil, &SessionExpiredError{}
	}

	r, err = fn(sessionID, eph)
	if err != nil {
		var expiredAgain *SessionExpiredError
		if errors.As(err, &expiredAgain) {
			return nil, fmt.Errorf("exchange: session expired twice in one tick, treating as hard failure: %w", err)
		}
		return nil, err
	}
	return r, nil
}

// PlaceOrder allocates a client order id, session-signs a post-only place
// action, and on success records the order in the tracker. A SessionExpired
// response is retried once, transparently, after re-establishing the
// session (see sendWithRetry).
func (c *Client) PlaceOrder(ctx context.Context, marketID string, side types.Side, price, size decimal.Decimal) (uint32, error) {
	id := allocateClientOrderID(c.tracker.Contains)

	if c.dryRun {
		c.logger.Info("DRY-RUN: would place order", "client_order_id", id, "side", side, "price", price, "size", size)
		c.tracker.Add(types.Order{
			ClientOrderID: id, MarketID: marketID, Side: side, Price: price, Size: size,
			SubmittedAt: time.Now(), State: types.OrderOpen,
		})
		return id, nil
	}

	_, err := c.sendWithRetry(ctx, func(sessionID string, eph *signer.Signer) (*receipt, error) {
		payload, err := marshalAction(placeOrderAction{
			Kind:          actionPlaceOrder,
			SessionID:     sessionID,
			MarketID:      marketID,
			ClientOrderID: id,
			Price:         toWireUnits(price),
			Size:          signedSize(side, size),
			PostOnly:      true,
		})
		if err != nil {
			return nil, err
		}
		return c.send(ctx, c.rl.Order, "/orders", payload, eph.SessionSign)
	})
	if err != nil {
		return 0, err
	}

	order := types.Order{
		ClientOrderID: id,
		MarketID:      marketID,
		Side:          side,
		Price:         price,
		Size:          size,
		SubmittedAt:   time.Now(),
		State:         types.OrderOpen,
	}
	c.tracker.Add(order)

	if pos, ok := c.Position(); ok {
		c.logger.Debug("position heartbeat from place_order receipt", "position", pos)
	}

	return id, nil
}

// CancelOrder swallows OrderNotFound (the order may have just filled); the
// tracker is cleaned up on either success or OrderNotFound. A
// SessionExpired response is retried once, transparently, after
// re-establishing the session (see sendWithRetry).
func (c *Client) CancelOrder(ctx context.Context, orderID uint32) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel order", "client_order_id", orderID)
		c.tracker.Remove(orderID)
		return nil
	}

	_, err := c.sendWithRetry(ctx, func(sessionID string, eph *signer.Signer) (*receipt, error) {
		payload, err := marshalAction(cancelOrderAction{
			Kind:          actionCancelOrder,
			SessionID:     sessionID,
			ClientOrderID: orderID,
		})
		if err != nil {
			return nil, err
		}
		return c.send(ctx, c.rl.Cancel, "/orders/cancel", payload, eph.SessionSign)
	})
	if err != nil {
		var notFound *OrderNotFoundError
		if errors.As(err, &notFound) {
			c.tracker.Remove(orderID)
			return nil
		}
		return err
	}

	c.tracker.Remove(orderID)
	return nil
}

// GetTopOfBook reads are unsigned (see DESIGN.md Open Question #1: no
// signature shape is documented for this action).
func (c *Client) GetTopOfBook(ctx context.Context, marketID string) (bid, ask decimal.Decimal, err error) {
	if c.tobCache != nil {
		if bid, ask, ok := c.tobCache.Get(); ok {
			return bid, ask, nil
		}
	}

	payload, err := marshalAction(getTopOfBookAction{Kind: actionGetTopOfBook, MarketID: marketID})
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}

	if err := c.rl.Book.Wait(ctx); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, &TransportError{Op: "get_top_of_book", Cause: err}
	}

	m := wire.BuildMessage(payload)
	resp, err := c.http.R().SetContext(ctx).SetBody(m).Post("/top_of_book")
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, &TransportError{Op: "get_top_of_book", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Decimal{}, decimal.Decimal{}, &TransportError{Op: "get_top_of_book", Cause: fmt.Errorf("status %d", resp.StatusCode())}
	}

	body, err := wire.DecodeReceipt(resp.Body())
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	r, err := decodeReceiptBody(body)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	c.recordPositionHeartbeat(r)

	return fromWireUnits(r.BestBid), fromWireUnits(r.BestAsk), nil
}
