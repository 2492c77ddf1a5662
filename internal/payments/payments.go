// Package payments turns raw card details into platform-safe tokens.
package payments

import (
	"context"
	"fmt"

	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stripe/stripe-go/v84"
)

// CardDetails is collected on the payment step and never persisted.
type CardDetails struct {
	Number   string
	ExpMonth string
	ExpYear  string
	CVC      string
	Name     string
}

type Token struct {
	ID    string
	Brand string
	Last4 string
}

// Tokenizer exchanges card details for an opaque token. A failed exchange
// must surface as a payment failure, never as a usable payment method.
type Tokenizer interface {
	Tokenize(ctx context.Context, card CardDetails) (*Token, error)
}

// StripeTokenizer tokenizes cards through the Stripe tokens API.
type StripeTokenizer struct {
	client *stripe.Client
}

func NewStripeTokenizer(secretKey string) (*StripeTokenizer, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	return &StripeTokenizer{client: stripe.NewClient(secretKey)}, nil
}

func (t *StripeTokenizer) Tokenize(ctx context.Context, card CardDetails) (*Token, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	token, err := t.client.V1Tokens.Create(ctx, tokenParams(card))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", &commerce.PaymentError{Code: "tokenization_failed", Message: "card could not be verified"}, err)
	}

	result := &Token{ID: token.ID}
	if token.Card != nil {
		result.Brand = string(token.Card.Brand)
		result.Last4 = token.Card.Last4
	}
	return result, nil
}

func tokenParams(card CardDetails) *stripe.TokenCreateParams {
	return &stripe.TokenCreateParams{
		Card: &stripe.CardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.String(card.ExpMonth),
			ExpYear:  stripe.String(card.ExpYear),
			CVC:      stripe.String(card.CVC),
			Name:     stripe.String(card.Name),
		},
	}
}
