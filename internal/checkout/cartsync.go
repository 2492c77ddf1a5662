// Package checkout holds the checkout core: the cart synchronizer that
// owns the local cart snapshot, and the step flow state machine derived
// from it.
package checkout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/getsentry/sentry-go"

	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/logging"
)

// CartSync is the single point of truth for reading and mutating the
// remote cart of one checkout session. It caches the platform's last
// authoritative response and never merges client-side.
//
// Responses are applied to the cache in request-issue order: every call
// takes a sequence number before hitting the network, and a response is
// discarded if a later-issued request has already been applied. A slow
// early update can therefore never clobber a faster later one.
type CartSync struct {
	client commerce.Client
	logger *slog.Logger

	mu        sync.Mutex
	cartID    string
	snapshot  *commerce.Cart
	submitted bool
	issued    uint64
	applied   uint64
}

// NewCartSync creates a cart synchronizer for one checkout session.
func NewCartSync(client commerce.Client, logger *slog.Logger) *CartSync {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CartSync{
		client: client,
		logger: logger,
	}
}

func (s *CartSync) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Adopt seeds the synchronizer with a previously persisted cart id so a
// rebuilt instance keeps working against the same platform cart instead of
// creating a fresh one. A cart id already learned from the platform wins.
func (s *CartSync) Adopt(cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cartID == "" {
		s.cartID = cartID
	}
}

// CartID returns the platform cart identifier, empty before the first
// successful fetch.
func (s *CartSync) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// Snapshot returns a copy of the cached cart, nil before the first load.
func (s *CartSync) Snapshot() *commerce.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Submitted reports whether the cart has been converted into an order.
func (s *CartSync) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Fetch retrieves the session cart from the platform, creating one on
// first use, and replaces the cached snapshot.
func (s *CartSync) Fetch(ctx context.Context) (*commerce.Cart, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.cart_sync.fetch",
		sentry.WithOpName("checkout.cart_sync"),
		sentry.WithDescription("Fetch"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	seq, cartID := s.begin()
	cart, err := s.client.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	s.apply(ctx, seq, cart)
	return cart.Clone(), nil
}

// LoadByCheckoutID resolves a cart from an externally issued checkout
// identifier. An unresolvable identifier is a hard failure; no placeholder
// cart is ever fabricated.
func (s *CartSync) LoadByCheckoutID(ctx context.Context, checkoutID string) (*commerce.Cart, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.cart_sync.load_by_checkout_id",
		sentry.WithOpName("checkout.cart_sync"),
		sentry.WithDescription("LoadByCheckoutID"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	seq, _ := s.begin()
	cart, err := s.client.RecoverCart(ctx, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to recover cart %q: %w", checkoutID, err)
	}
	s.apply(ctx, seq, cart)
	return cart.Clone(), nil
}

// Update applies a whitelisted partial mutation and replaces the cached
// snapshot with the platform's authoritative response. Failures are
// surfaced to the caller, never retried here.
func (s *CartSync) Update(ctx context.Context, mutation commerce.CartMutation) (*commerce.Cart, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.cart_sync.update",
		sentry.WithOpName("checkout.cart_sync"),
		sentry.WithDescription("Update"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if mutation.IsEmpty() {
		return nil, &commerce.ValidationError{Message: "no fields to update"}
	}

	seq, cartID := s.begin()
	if cartID == "" {
		return nil, fmt.Errorf("cannot update before the cart is loaded")
	}
	cart, err := s.client.UpdateCart(ctx, cartID, mutation)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	s.apply(ctx, seq, cart)
	return cart.Clone(), nil
}

// SubmitOrder finalizes the cart into an order. The cart reference is no
// longer valid for mutation afterwards; guarding against a second submit
// is the review surface's job, not this method's.
func (s *CartSync) SubmitOrder(ctx context.Context) (*commerce.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.cart_sync.submit_order",
		sentry.WithOpName("checkout.cart_sync"),
		sentry.WithDescription("SubmitOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	s.mu.Lock()
	cartID := s.cartID
	s.mu.Unlock()
	if cartID == "" {
		return nil, fmt.Errorf("cannot submit before the cart is loaded")
	}

	order, err := s.client.SubmitOrder(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}

	s.mu.Lock()
	s.submitted = true
	s.mu.Unlock()

	s.loggerFromContext(ctx).Info("order submitted",
		"cart_id", cartID,
		"order_id", order.ID,
		"order_number", order.Number,
		"grand_total_cents", order.GrandTotalCents,
	)
	return order, nil
}

// begin issues the next request sequence number and captures the cart id
// the request should run against.
func (s *CartSync) begin() (uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued, s.cartID
}

// apply installs a response as the cached snapshot unless a later-issued
// request already did.
func (s *CartSync) apply(ctx context.Context, seq uint64, cart *commerce.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied {
		s.loggerFromContext(ctx).Debug("discarding stale cart response",
			"seq", seq,
			"applied", s.applied,
			"cart_id", cart.ID,
		)
		return
	}
	s.applied = seq
	s.snapshot = cart.Clone()
	if cart.ID != "" {
		s.cartID = cart.ID
	}
}
