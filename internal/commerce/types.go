// Package commerce defines the boundary to the external commerce platform:
// the cart and order data model, the client capability set, and the error
// taxonomy surfaced to callers.
package commerce

import "time"

// Address holds a billing or shipping address. Address2 and Phone are
// optional; everything else is required by the platform before submission.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// Billing is the billing party record. It carries the contact email and,
// once the payment step has run, the selected payment method identifier.
type Billing struct {
	Address
	Email           string `json:"email,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// LineItem is one cart entry. Prices are integer cents; the platform
// computes them and the local copy is never authoritative.
type LineItem struct {
	ID             string            `json:"id"`
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Quantity       int               `json:"quantity"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	TotalCents     int64             `json:"total_cents"`
	Options        map[string]string `json:"options,omitempty"`
}

// Cart mirrors the platform's cart resource. Totals are recomputed remotely
// on every mutation.
type Cart struct {
	ID              string     `json:"id"`
	CheckoutID      string     `json:"checkout_id,omitempty"`
	Currency        string     `json:"currency"`
	Items           []LineItem `json:"items"`
	SubtotalCents   int64      `json:"subtotal_cents"`
	TaxCents        int64      `json:"tax_cents"`
	ShippingCents   int64      `json:"shipping_cents"`
	GrandTotalCents int64      `json:"grand_total_cents"`
	Billing         *Billing   `json:"billing,omitempty"`
	Shipping        *Address   `json:"shipping,omitempty"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing mutable state.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cloned := *c
	if c.Items != nil {
		cloned.Items = make([]LineItem, len(c.Items))
		copy(cloned.Items, c.Items)
		for i, item := range c.Items {
			if item.Options == nil {
				continue
			}
			options := make(map[string]string, len(item.Options))
			for k, v := range item.Options {
				options[k] = v
			}
			cloned.Items[i].Options = options
		}
	}
	if c.Billing != nil {
		billing := *c.Billing
		cloned.Billing = &billing
	}
	if c.Shipping != nil {
		shipping := *c.Shipping
		cloned.Shipping = &shipping
	}
	return &cloned
}

// BillingMutation is the whitelisted billing projection for cart updates.
// Callers construct it field by field; raw form data is never passed
// through, so UI-only fields cannot leak into the remote mutation.
type BillingMutation struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ShippingMutation is the whitelisted shipping-address projection.
type ShippingMutation struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PaymentMutation selects the payment method for the cart. MethodID is a
// platform method name ("paypal") or a gateway token reference.
type PaymentMutation struct {
	MethodID string `json:"method_id"`
}

// CartMutation is a partial cart update. Nil sections are left untouched
// by the platform.
type CartMutation struct {
	Billing  *BillingMutation  `json:"billing,omitempty"`
	Shipping *ShippingMutation `json:"shipping,omitempty"`
	Payment  *PaymentMutation  `json:"payment,omitempty"`
}

// IsEmpty reports whether the mutation carries no sections at all.
func (m CartMutation) IsEmpty() bool {
	return m.Billing == nil && m.Shipping == nil && m.Payment == nil
}

// OrderStatus is the platform's order state enumeration.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusComplete   OrderStatus = "complete"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// Order is the immutable artifact produced once per successful submission.
// Billing, shipping, and payment are denormalized copies taken at
// submission time.
type Order struct {
	ID              string      `json:"id"`
	Number          string      `json:"number"`
	Status          OrderStatus `json:"status"`
	Paid            bool        `json:"paid"`
	Currency        string      `json:"currency"`
	SubtotalCents   int64       `json:"subtotal_cents"`
	TaxCents        int64       `json:"tax_cents"`
	ShippingCents   int64       `json:"shipping_cents"`
	GrandTotalCents int64       `json:"grand_total_cents"`
	Email           string      `json:"email"`
	Billing         *Billing    `json:"billing,omitempty"`
	Shipping        *Address    `json:"shipping,omitempty"`
	PaymentMethod   string      `json:"payment_method"`
	CreatedAt       time.Time   `json:"created_at"`
}

// AccountInput creates a customer account ahead of order submission.
// Account creation is an explicit step with its own success reporting,
// never folded into SubmitOrder.
type AccountInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Account is the platform's customer account record.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
