package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/stepshopapp/stepshop/internal/cache"
	"github.com/stepshopapp/stepshop/internal/checkout"
	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/config"
	"github.com/stepshopapp/stepshop/internal/crypto"
	"github.com/stepshopapp/stepshop/internal/payments"
	"github.com/stepshopapp/stepshop/internal/session"
	"github.com/stepshopapp/stepshop/internal/storefront"
)

// fakePlatform is an in-memory commerce platform for handler tests.
type fakePlatform struct {
	mu       sync.Mutex
	carts    map[string]*commerce.Cart
	updates  []commerce.CartMutation
	created  int
	recovers int
	submit   func(cartID string) (*commerce.Order, error)
	recover  func(checkoutID string) (*commerce.Cart, error)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{carts: map[string]*commerce.Cart{}}
}

func (p *fakePlatform) newCart() *commerce.Cart {
	return &commerce.Cart{
		ID:       "cart_1",
		Currency: "USD",
		Items: []commerce.LineItem{
			{ID: "li_1", SKU: "TEE_1", Name: "Logo Tee", Quantity: 1, UnitPriceCents: 2499, TotalCents: 2499},
		},
		SubtotalCents:   2499,
		TaxCents:        0,
		ShippingCents:   500,
		GrandTotalCents: 2999,
	}
}

func (p *fakePlatform) GetCart(_ context.Context, cartID string) (*commerce.Cart, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cartID == "" {
		p.created++
		cart := p.newCart()
		p.carts[cart.ID] = cart
		return cart.Clone(), nil
	}
	cart, ok := p.carts[cartID]
	if !ok {
		return nil, &commerce.NotFoundError{}
	}
	return cart.Clone(), nil
}

func (p *fakePlatform) UpdateCart(_ context.Context, cartID string, mutation commerce.CartMutation) (*commerce.Cart, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cart, ok := p.carts[cartID]
	if !ok {
		return nil, &commerce.NotFoundError{}
	}
	p.updates = append(p.updates, mutation)

	updated := cart.Clone()
	if mutation.Billing != nil {
		if updated.Billing == nil {
			updated.Billing = &commerce.Billing{}
		}
		updated.Billing.FirstName = mutation.Billing.FirstName
		updated.Billing.LastName = mutation.Billing.LastName
		updated.Billing.Email = mutation.Billing.Email
	}
	if mutation.Shipping != nil {
		updated.Shipping = &commerce.Address{
			FirstName: mutation.Shipping.FirstName,
			LastName:  mutation.Shipping.LastName,
			Address1:  mutation.Shipping.Address1,
			City:      mutation.Shipping.City,
			State:     mutation.Shipping.State,
			Zip:       mutation.Shipping.Zip,
			Country:   mutation.Shipping.Country,
		}
	}
	if mutation.Payment != nil {
		if updated.Billing == nil {
			updated.Billing = &commerce.Billing{}
		}
		updated.Billing.PaymentMethodID = mutation.Payment.MethodID
	}
	p.carts[cartID] = updated
	return updated.Clone(), nil
}

func (p *fakePlatform) RecoverCart(_ context.Context, checkoutID string) (*commerce.Cart, error) {
	p.mu.Lock()
	p.recovers++
	p.mu.Unlock()
	if p.recover != nil {
		return p.recover(checkoutID)
	}
	return nil, &commerce.NotFoundError{CheckoutID: checkoutID}
}

func (p *fakePlatform) SubmitOrder(_ context.Context, cartID string) (*commerce.Order, error) {
	if p.submit != nil {
		return p.submit(cartID)
	}
	p.mu.Lock()
	cart := p.carts[cartID]
	p.mu.Unlock()
	if cart == nil {
		return nil, &commerce.NotFoundError{}
	}
	order := &commerce.Order{
		ID:              "ord_1",
		Number:          "1001",
		Status:          commerce.OrderStatusPending,
		Currency:        cart.Currency,
		SubtotalCents:   cart.SubtotalCents,
		TaxCents:        cart.TaxCents,
		ShippingCents:   cart.ShippingCents,
		GrandTotalCents: cart.GrandTotalCents,
		Billing:         cart.Billing,
		Shipping:        cart.Shipping,
	}
	if cart.Billing != nil {
		order.Email = cart.Billing.Email
		order.PaymentMethod = cart.Billing.PaymentMethodID
	}
	return order, nil
}

func (p *fakePlatform) CreateAccount(_ context.Context, input commerce.AccountInput) (*commerce.Account, error) {
	return &commerce.Account{ID: "acct_1", Email: input.Email}, nil
}

type fakeTokenizer struct {
	err error
}

func (t *fakeTokenizer) Tokenize(_ context.Context, card payments.CardDetails) (*payments.Token, error) {
	if t.err != nil {
		return nil, t.err
	}
	last4 := card.Number
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return &payments.Token{ID: "tok_test", Brand: "Visa", Last4: last4}, nil
}

type testEnv struct {
	platform *fakePlatform
	handlers *Handlers
	router   *mux.Router
	cookies  []*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	platform := newFakePlatform()
	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}
	sessionManager := session.NewManager(session.NewMemoryStore(), false)
	sealer, err := crypto.NewSealer(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}
	registry, err := checkout.NewRegistry(platform, nil)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	service, err := checkout.NewService(platform, cacheProvider, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	h, err := New(Dependencies{
		Config:          &config.Config{Port: "8080"},
		CacheProvider:   cacheProvider,
		Registry:        registry,
		CheckoutService: service,
		SessionManager:  sessionManager,
		Tokenizer:       &fakeTokenizer{},
		Sealer:          sealer,
		Storefront:      storefront.Default(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/checkout", h.CheckoutPage).Methods("GET")
	r.HandleFunc("/checkout/customer", h.CustomerStep).Methods("POST")
	r.HandleFunc("/checkout/shipping", h.ShippingStep).Methods("POST")
	r.HandleFunc("/checkout/payment", h.PaymentStep).Methods("POST")
	r.HandleFunc("/checkout/account", h.CreateAccount).Methods("POST")
	r.HandleFunc("/checkout/step", h.Navigate).Methods("POST")
	r.HandleFunc("/checkout/submit", h.SubmitOrder).Methods("POST")
	r.HandleFunc("/checkout/reset", h.ResetCheckout).Methods("POST")
	r.HandleFunc("/checkout/{checkoutID}", h.RecoverCheckout).Methods("GET")
	r.HandleFunc("/order/{orderID}", h.OrderConfirmation).Methods("GET")

	return &testEnv{platform: platform, handlers: h, router: r}
}

// do runs one request carrying the session cookie across calls.
func (e *testEnv) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, cookie := range e.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return rec
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	return e.do(t, http.MethodGet, target, nil)
}

func (e *testEnv) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rec := e.do(t, http.MethodPost, target, form)
	if rec.Code != http.StatusSeeOther && rec.Code != http.StatusOK {
		t.Fatalf("POST %s status = %d, body: %s", target, rec.Code, rec.Body.String())
	}
	return rec
}

func TestCheckoutPageStartsAtCustomerStep(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.get(t, "/checkout")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Customer Info") {
		t.Error("page should render the customer step")
	}
	if !strings.Contains(body, "$29.99") {
		t.Error("page should render the cart total")
	}
	if len(env.cookies) == 0 {
		t.Error("first visit should set the session cookie")
	}
}

func TestCustomerStepWhitelistsFormFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.get(t, "/checkout")

	rec := env.post(t, "/checkout/customer", url.Values{
		"first_name":       {"Ada"},
		"last_name":        {"Lovelace"},
		"email":            {"ada@example.com"},
		"newsletter_optin": {"true"},
		"admin":            {"1"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	env.platform.mu.Lock()
	updates := env.platform.updates
	env.platform.mu.Unlock()
	if len(updates) != 1 {
		t.Fatalf("recorded %d updates, want 1", len(updates))
	}

	payload, err := json.Marshal(updates[0])
	if err != nil {
		t.Fatalf("failed to marshal mutation: %v", err)
	}
	for _, leaked := range []string{"newsletter", "admin"} {
		if strings.Contains(string(payload), leaked) {
			t.Errorf("mutation leaked UI-only field %q: %s", leaked, payload)
		}
	}
	if updates[0].Billing == nil || updates[0].Billing.Email != "ada@example.com" {
		t.Fatalf("unexpected mutation: %s", payload)
	}
}

func TestCustomerStepValidationStaysOnStep(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.get(t, "/checkout")

	rec := env.do(t, http.MethodPost, "/checkout/customer", url.Values{
		"first_name": {"Ada"},
		"email":      {"not-an-email"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want re-rendered page", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Customer Info") {
		t.Error("validation failure should stay on the customer step")
	}
	if !strings.Contains(body, "role=\"alert\"") {
		t.Error("validation failure should render an inline error")
	}

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	if len(env.platform.updates) != 0 {
		t.Error("invalid form must not reach the platform")
	}
}

func TestNavigateToFutureStepIgnored(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.get(t, "/checkout")

	env.post(t, "/checkout/step", url.Values{"step": {"payment"}})

	rec := env.get(t, "/checkout")
	if !strings.Contains(rec.Body.String(), "Customer Info") {
		t.Error("jumping to an uncompleted step should leave the flow on customer")
	}
}

func TestCheckoutFlowEndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.get(t, "/checkout")

	env.post(t, "/checkout/customer", url.Values{
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"email":      {"ada@example.com"},
	})
	if rec := env.get(t, "/checkout"); !strings.Contains(rec.Body.String(), `action="/checkout/shipping"`) {
		t.Fatal("flow should advance to shipping after customer step")
	}

	env.post(t, "/checkout/shipping", url.Values{
		"address1": {"1 Analytical Way"},
		"city":     {"London"},
		"state":    {"LDN"},
		"zip":      {"E1 6AN"},
		"country":  {"GB"},
	})

	env.post(t, "/checkout/payment", url.Values{"method": {"paypal"}})

	rec := env.get(t, "/checkout")
	body := rec.Body.String()
	if !strings.Contains(body, "Place Order") {
		t.Fatal("flow should land on review after payment step")
	}
	if !strings.Contains(body, "PayPal") {
		t.Error("review should show the selected payment method")
	}
	if !strings.Contains(body, "$29.99") {
		t.Error("review should show the grand total")
	}

	submitRec := env.post(t, "/checkout/submit", nil)
	if submitRec.Code != http.StatusOK {
		t.Fatalf("submit status = %d", submitRec.Code)
	}
	confirmation := submitRec.Body.String()
	if !strings.Contains(confirmation, "Thank you for your order") {
		t.Error("submit should render the confirmation page")
	}
	if !strings.Contains(confirmation, "1001") {
		t.Error("confirmation should show the order number")
	}
	if !strings.Contains(confirmation, "$29.99") {
		t.Error("confirmation should show the captured total")
	}
}

// completeThroughShipping drives a fresh session to the payment step.
func completeThroughShipping(t *testing.T, env *testEnv) {
	t.Helper()
	env.get(t, "/checkout")
	env.post(t, "/checkout/customer", url.Values{
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"email":      {"ada@example.com"},
	})
	env.post(t, "/checkout/shipping", url.Values{
		"address1": {"1 Analytical Way"},
		"city":     {"London"},
		"state":    {"LDN"},
		"zip":      {"E1 6AN"},
		"country":  {"GB"},
	})
}

func TestPaymentStepCardTokenization(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	completeThroughShipping(t, env)

	env.post(t, "/checkout/payment", url.Values{
		"method":         {"card"},
		"card_number":    {"4242424242424242"},
		"card_exp_month": {"12"},
		"card_exp_year":  {"2030"},
		"card_cvc":       {"123"},
	})

	env.platform.mu.Lock()
	last := env.platform.updates[len(env.platform.updates)-1]
	env.platform.mu.Unlock()
	if last.Payment == nil || last.Payment.MethodID != "tok_test" {
		t.Fatalf("platform should receive the token id, got %+v", last.Payment)
	}

	rec := env.get(t, "/checkout")
	if !strings.Contains(rec.Body.String(), "Visa ending in 4242") {
		t.Error("review should show the masked card summary")
	}
}

func TestPaymentStepTokenizationFailureIsHard(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handlers.tokenizer = &fakeTokenizer{err: &commerce.PaymentError{Code: "card_declined", Message: "declined"}}
	completeThroughShipping(t, env)

	before := len(env.platform.updates)
	rec := env.do(t, http.MethodPost, "/checkout/payment", url.Values{
		"method":      {"card"},
		"card_number": {"4000000000000002"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want re-rendered page", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "payment could not be processed") {
		t.Error("tokenization failure should surface as a payment error")
	}

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	if len(env.platform.updates) != before {
		t.Error("a failed tokenization must not select any payment method")
	}
}

func TestRecoverCheckoutNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.get(t, "/checkout/chk_missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "couldn&#39;t find that checkout") {
		t.Error("unresolvable checkout id should render the not-found message")
	}
}

func TestRecoverCheckoutResumesAtPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.platform.recover = func(checkoutID string) (*commerce.Cart, error) {
		cart := env.platform.newCart()
		cart.ID = "cart_recovered"
		cart.CheckoutID = checkoutID
		cart.Billing = &commerce.Billing{
			Address: commerce.Address{FirstName: "Ada", LastName: "Lovelace"},
			Email:   "ada@example.com",
		}
		cart.Shipping = &commerce.Address{Address1: "1 Analytical Way", City: "London", Country: "GB"}
		env.platform.mu.Lock()
		env.platform.carts[cart.ID] = cart
		env.platform.mu.Unlock()
		return cart.Clone(), nil
	}

	rec := env.get(t, "/checkout/chk_resume")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}

	page := env.get(t, "/checkout")
	body := page.Body.String()
	if !strings.Contains(body, "Payment") || !strings.Contains(body, `name="method"`) {
		t.Error("a recovered cart with customer and shipping data should land on payment")
	}
}

func TestAccountCreationReportsInline(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	completeThroughShipping(t, env)
	env.post(t, "/checkout/account", url.Values{"email": {"ada@example.com"}})

	rec := env.get(t, "/checkout")
	body := rec.Body.String()
	if !strings.Contains(body, "Account created for ada@example.com") {
		t.Error("account creation should be reported inline")
	}
	if !strings.Contains(body, `name="method"`) {
		t.Error("account creation must not advance the step flow past payment")
	}
}

func TestCartSurvivesRegistryRebuild(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	completeThroughShipping(t, env)

	// Simulate LRU eviction of the per-session synchronizer.
	sessionID := env.cookies[0].Value
	env.handlers.registry.Drop(sessionID)

	rec := env.get(t, "/checkout")
	body := rec.Body.String()
	if !strings.Contains(body, `name="method"`) {
		t.Error("session should still be on the payment step after a registry rebuild")
	}
	if !strings.Contains(body, "$29.99") {
		t.Error("the original cart should still back the checkout")
	}

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	if env.platform.created != 1 {
		t.Errorf("platform created %d carts, want 1; eviction must not abandon the cart", env.platform.created)
	}
}

func TestRecoverCheckoutRepeatedClickServedFromCache(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.platform.recover = func(checkoutID string) (*commerce.Cart, error) {
		cart := env.platform.newCart()
		cart.ID = "cart_recovered"
		cart.CheckoutID = checkoutID
		env.platform.mu.Lock()
		env.platform.carts[cart.ID] = cart
		env.platform.mu.Unlock()
		return cart.Clone(), nil
	}

	for i := 0; i < 2; i++ {
		if rec := env.get(t, "/checkout/chk_repeat"); rec.Code != http.StatusSeeOther {
			t.Fatalf("click %d status = %d, want redirect", i+1, rec.Code)
		}
	}

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	if env.platform.recovers != 1 {
		t.Errorf("platform recovery endpoint hit %d times, want 1; repeat clicks should use the cached mapping", env.platform.recovers)
	}
}

func TestResetCheckoutStartsClean(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	completeThroughShipping(t, env)
	env.post(t, "/checkout/submit", nil)

	rec := env.post(t, "/checkout/reset", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("reset status = %d, want redirect", rec.Code)
	}

	page := env.get(t, "/checkout")
	body := page.Body.String()
	if !strings.Contains(body, `action="/checkout/customer"`) {
		t.Error("a reset session should start over on the customer step")
	}
	if strings.Contains(body, "ada@example.com") {
		t.Error("a reset session must not carry the previous checkout's data")
	}

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	if env.platform.created != 2 {
		t.Errorf("platform created %d carts, want a fresh one after reset", env.platform.created)
	}
}

func TestDoubleSubmitDoesNotCreateSecondOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	submits := 0
	env.platform.submit = func(cartID string) (*commerce.Order, error) {
		submits++
		return &commerce.Order{ID: "ord_1", Number: "1001", Currency: "USD", GrandTotalCents: 2999}, nil
	}

	env.get(t, "/checkout")
	env.post(t, "/checkout/customer", url.Values{
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"email":      {"ada@example.com"},
	})
	env.post(t, "/checkout/submit", nil)
	env.post(t, "/checkout/submit", nil)

	if submits != 1 {
		t.Fatalf("platform received %d submits, want 1", submits)
	}
}
