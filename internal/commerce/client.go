package commerce

import "context"

// Client is the capability set this system needs from the commerce
// platform. The hosted platform's REST API is one implementation; tests
// substitute their own without touching checkout logic.
type Client interface {
	// GetCart retrieves the cart for the given id, or creates a fresh cart
	// when id is empty (the platform creates carts implicitly on first
	// interaction).
	GetCart(ctx context.Context, cartID string) (*Cart, error)

	// UpdateCart applies a partial mutation and returns the platform's
	// authoritative cart, totals recomputed.
	UpdateCart(ctx context.Context, cartID string, mutation CartMutation) (*Cart, error)

	// RecoverCart resolves a cart from an externally issued checkout
	// identifier (shared or emailed link).
	RecoverCart(ctx context.Context, checkoutID string) (*Cart, error)

	// SubmitOrder finalizes the cart into an order. The cart is no longer
	// valid for mutation afterwards.
	SubmitOrder(ctx context.Context, cartID string) (*Order, error)

	// CreateAccount creates a customer account. Explicitly separate from
	// SubmitOrder so its outcome is reported on its own.
	CreateAccount(ctx context.Context, input AccountInput) (*Account, error)
}
