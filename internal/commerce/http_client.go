package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPClient talks to the commerce platform's REST API. Every request
// carries the store identifier and the public API key.
type HTTPClient struct {
	baseURL    string
	storeID    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a platform client. Pass nil to use a default
// http.Client with the standard request timeout.
func NewHTTPClient(baseURL, storeID, apiKey string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		storeID:    storeID,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *HTTPClient) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	var cart Cart
	if cartID == "" {
		if err := c.do(ctx, http.MethodPost, "/v1/carts", nil, &cart); err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err := c.do(ctx, http.MethodGet, "/v1/carts/"+url.PathEscape(cartID), nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) UpdateCart(ctx context.Context, cartID string, mutation CartMutation) (*Cart, error) {
	if cartID == "" {
		return nil, &ValidationError{Field: "cart_id", Message: "cart id is required"}
	}
	if mutation.IsEmpty() {
		return nil, &ValidationError{Message: "mutation is empty"}
	}
	var cart Cart
	if err := c.do(ctx, http.MethodPut, "/v1/carts/"+url.PathEscape(cartID), mutation, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) RecoverCart(ctx context.Context, checkoutID string) (*Cart, error) {
	if strings.TrimSpace(checkoutID) == "" {
		return nil, &NotFoundError{CheckoutID: checkoutID}
	}
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/v1/checkouts/"+url.PathEscape(checkoutID), nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) SubmitOrder(ctx context.Context, cartID string) (*Order, error) {
	if cartID == "" {
		return nil, &ValidationError{Field: "cart_id", Message: "cart id is required"}
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/carts/"+url.PathEscape(cartID)+"/order", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *HTTPClient) CreateAccount(ctx context.Context, input AccountInput) (*Account, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, &ValidationError{Field: "email", Message: "email is required"}
	}
	var account Account
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", input, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// platformError is the platform's error envelope.
type platformError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Param   string `json:"param"`
	} `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Store-ID", c.storeID)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &NetworkError{Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	}

	return classifyResponse(resp.StatusCode, data)
}

// classifyResponse maps the platform's error envelope onto the local error
// taxonomy. The error code wins over the HTTP status when both are present.
func classifyResponse(status int, body []byte) error {
	var envelope platformError
	_ = json.Unmarshal(body, &envelope)
	code := envelope.Error.Code
	message := envelope.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}

	switch code {
	case "validation_error", "invalid_field", "missing_field":
		return &ValidationError{Field: envelope.Error.Param, Message: message}
	case "payment_declined", "payment_error", "gateway_error":
		return &PaymentError{Code: code, Message: message}
	case "out_of_stock", "inventory_error":
		return &InventoryError{SKU: envelope.Error.Param, Message: message}
	case "not_found", "cart_not_found", "checkout_not_found":
		return &NotFoundError{CheckoutID: envelope.Error.Param}
	}

	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{CheckoutID: envelope.Error.Param}
	case status == http.StatusPaymentRequired:
		return &PaymentError{Code: code, Message: message}
	case status == http.StatusConflict:
		return &InventoryError{SKU: envelope.Error.Param, Message: message}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &ValidationError{Field: envelope.Error.Param, Message: message}
	default:
		return &NetworkError{Err: fmt.Errorf("platform returned status %d: %s", status, message)}
	}
}
