// Package session binds a browser to its checkout: the platform cart id,
// the step flow state, and the submitted-order reference.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stepshopapp/stepshop/internal/checkout"
)

const (
	cookieName = "stepshop_checkout"
	ttl        = 24 * time.Hour
)

// Data is one browser's checkout state. PaymentSelection is an encrypted
// blob; the plaintext never touches the session store.
type Data struct {
	CartID           string             `json:"cart_id,omitempty"`
	CheckoutID       string             `json:"checkout_id,omitempty"`
	Flow             checkout.FlowState `json:"flow"`
	PaymentSelection string             `json:"payment_selection,omitempty"`
	AccountCreated   bool               `json:"account_created,omitempty"`
	AccountEmail     string             `json:"account_email,omitempty"`
	OrderRecordID    string             `json:"order_record_id,omitempty"`
	OrderNumber      string             `json:"order_number,omitempty"`
	Submitted        bool               `json:"submitted"`
	CreatedAt        int64              `json:"created_at"`
}

// Store defines the interface for session storage.
type Store interface {
	Get(ctx context.Context, key string) (*Data, bool)
	Set(ctx context.Context, key string, data *Data, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// Manager handles checkout session creation, lookup, and persistence.
type Manager struct {
	store  Store
	secure bool
}

func NewManager(store Store, secure bool) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Ensure returns the browser's checkout session, creating a fresh one and
// setting the cookie when none exists. Returns the session id alongside
// the data so callers can key per-session state off it.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *Data, error) {
	if ctx == nil {
		ctx = r.Context()
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		if data, ok := m.store.Get(ctx, cookie.Value); ok && !expired(data) {
			return cookie.Value, data, nil
		}
	}

	sessionID := uuid.NewString()
	data := &Data{
		Flow:      checkout.NewStepFlow().State(),
		CreatedAt: time.Now().Unix(),
	}
	m.store.Set(ctx, sessionID, data, ttl)
	http.SetCookie(w, m.cookie(sessionID, int(ttl.Seconds())))

	return sessionID, cloneData(data), nil
}

// Get retrieves the session without creating one.
func (m *Manager) Get(ctx context.Context, r *http.Request) (string, *Data, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", nil, fmt.Errorf("no checkout session cookie: %w", err)
	}

	if ctx == nil {
		ctx = r.Context()
	}

	data, ok := m.store.Get(ctx, cookie.Value)
	if !ok {
		return "", nil, fmt.Errorf("checkout session not found or expired")
	}
	if expired(data) {
		m.store.Delete(ctx, cookie.Value)
		return "", nil, fmt.Errorf("checkout session expired")
	}

	return cookie.Value, data, nil
}

// Update persists changed session data under the existing session id.
func (m *Manager) Update(ctx context.Context, sessionID string, data *Data) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if data == nil {
		return fmt.Errorf("session data is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.store.Set(ctx, sessionID, cloneData(data), ttl)
	return nil
}

// Destroy removes the session and clears the cookie, e.g. after the
// confirmation page so a new checkout starts clean.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(cookieName); err == nil {
		if ctx == nil {
			ctx = r.Context()
		}
		m.store.Delete(ctx, cookie.Value)
	}
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expired(data *Data) bool {
	if data == nil {
		return true
	}
	return time.Now().Unix()-data.CreatedAt > int64(ttl.Seconds())
}

func cloneData(data *Data) *Data {
	if data == nil {
		return nil
	}
	cloned := *data
	if data.Flow.Completed != nil {
		cloned.Flow.Completed = make([]checkout.StepID, len(data.Flow.Completed))
		copy(cloned.Flow.Completed, data.Flow.Completed)
	}
	return &cloned
}
