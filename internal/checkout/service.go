package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/stepshopapp/stepshop/internal/cache"
	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/db"
	"github.com/stepshopapp/stepshop/internal/email"
	"github.com/stepshopapp/stepshop/internal/logging"
	"github.com/stepshopapp/stepshop/internal/observability"
	"github.com/stepshopapp/stepshop/internal/storefront"
)

// ErrAlreadySubmitted is returned when a cart has an order on record
// already. Double-posting the review form must never place a second order.
var ErrAlreadySubmitted = errors.New("order already submitted for this cart")

const submitMarkerTTL = 24 * time.Hour

type orderRecorder interface {
	Create(ctx context.Context, record *db.OrderRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*db.OrderRecord, error)
	GetByPlatformOrderID(ctx context.Context, platformOrderID string) (*db.OrderRecord, error)
}

// ConfirmationSender delivers the order confirmation email. Delivery is
// best effort; implementations log their own failures.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, info *email.ConfirmationInfo)
}

// Service drives order submission and account creation around the cart
// synchronizer: idempotency marking, local order records, and the
// confirmation email. Only the platform submit itself can fail the
// operation; record and email trouble is logged and swallowed.
type Service struct {
	client commerce.Client
	cache  cache.Provider
	orders orderRecorder
	mailer ConfirmationSender
	store  *storefront.Config
	logger *slog.Logger
}

// NewService creates the checkout service. The order recorder and mailer
// are optional; everything else is required.
func NewService(client commerce.Client, cacheProvider cache.Provider, orders orderRecorder, mailer ConfirmationSender, store *storefront.Config, logger *slog.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("commerce client is required")
	}
	if cacheProvider == nil {
		return nil, fmt.Errorf("cache provider is required")
	}
	if store == nil {
		store = storefront.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		cache:  cacheProvider,
		orders: orders,
		mailer: mailer,
		store:  store,
		logger: logger.With("component", "checkout_service"),
	}, nil
}

func (s *Service) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// SubmitResult carries the platform order plus the local record when one
// was persisted.
type SubmitResult struct {
	Order  *commerce.Order
	Record *db.OrderRecord
}

// Submit finalizes the session's cart into an order.
func (s *Service) Submit(ctx context.Context, cartSync *CartSync) (*SubmitResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.submit",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Submit"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("order.submit.received", 1)
	recordFailure := func(reason string) {
		meter.Count("order.submit.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	cartID := cartSync.CartID()
	if cartID == "" {
		recordFailure("cart_not_loaded")
		return nil, fmt.Errorf("cannot submit before the cart is loaded")
	}

	if existing, err := s.cache.Get(ctx, cache.SubmitKey(cartID)); err == nil && existing != "" {
		recordFailure("duplicate_submit")
		logger.Warn("duplicate order submission blocked", "cart_id", cartID, "order_id", existing)
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubmitted, existing)
	}

	snapshot := cartSync.Snapshot()

	order, err := cartSync.SubmitOrder(ctx)
	if err != nil {
		recordFailure(failureReason(err))
		return nil, err
	}
	meter.Count("order.submit.succeeded", 1)

	if err := s.cache.Set(ctx, cache.SubmitKey(cartID), order.ID, submitMarkerTTL); err != nil {
		logger.Warn("failed to set submit marker", "error", err, "cart_id", cartID)
	}

	result := &SubmitResult{Order: order}
	if s.orders != nil {
		record := recordFromOrder(order)
		if err := s.orders.Create(ctx, record); err != nil {
			logger.Error("failed to persist order record", "error", err, "order_id", order.ID)
		} else {
			result.Record = record
		}
	}

	if s.mailer != nil {
		s.mailer.SendConfirmation(ctx, s.confirmationInfo(order, snapshot))
	}

	return result, nil
}

// OrderByRecordID loads a locally persisted order record for the
// confirmation page.
func (s *Service) OrderByRecordID(ctx context.Context, id uuid.UUID) (*db.OrderRecord, error) {
	if s.orders == nil {
		return nil, db.ErrNotFound
	}
	return s.orders.GetByID(ctx, id)
}

// RecordForCart resolves the local order record for an already submitted
// cart via the submit marker, so a session that lost its order reference
// (another tab, a crash between submit and session save) still lands on
// its confirmation page.
func (s *Service) RecordForCart(ctx context.Context, cartID string) (*db.OrderRecord, error) {
	if s.orders == nil || cartID == "" {
		return nil, db.ErrNotFound
	}
	platformOrderID, err := s.cache.Get(ctx, cache.SubmitKey(cartID))
	if err != nil || platformOrderID == "" {
		return nil, db.ErrNotFound
	}
	return s.orders.GetByPlatformOrderID(ctx, platformOrderID)
}

// CreateAccount registers a customer account with the platform. This is an
// explicit pre-submission step with its own success reporting.
func (s *Service) CreateAccount(ctx context.Context, input commerce.AccountInput) (*commerce.Account, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create_account",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("CreateAccount"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if strings.TrimSpace(input.Email) == "" {
		return nil, &commerce.ValidationError{Field: "email", Message: "Email is required to create an account."}
	}

	account, err := s.client.CreateAccount(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.loggerFromContext(ctx).Info("account created", "account_id", account.ID)
	return account, nil
}

func failureReason(err error) string {
	switch {
	case commerce.IsValidationError(err):
		return "validation"
	case commerce.IsPaymentError(err):
		return "payment_declined"
	case commerce.IsInventoryError(err):
		return "out_of_stock"
	case commerce.IsNotFoundError(err):
		return "not_found"
	case commerce.IsNetworkError(err):
		return "network"
	default:
		return "unknown"
	}
}

func recordFromOrder(order *commerce.Order) *db.OrderRecord {
	record := &db.OrderRecord{
		ID:              uuid.New(),
		PlatformOrderID: order.ID,
		Number:          order.Number,
		Status:          string(order.Status),
		Paid:            order.Paid,
		Email:           order.Email,
		Currency:        order.Currency,
		SubtotalCents:   order.SubtotalCents,
		TaxCents:        order.TaxCents,
		ShippingCents:   order.ShippingCents,
		TotalCents:      order.GrandTotalCents,
		PaymentMethod:   order.PaymentMethod,
		CreatedAt:       order.CreatedAt,
	}
	if order.Billing != nil {
		record.CustomerName = strings.TrimSpace(order.Billing.FirstName + " " + order.Billing.LastName)
		record.BillingAddress = addressMap(order.Billing.Address)
	}
	if order.Shipping != nil {
		record.ShippingAddress = addressMap(*order.Shipping)
	}
	return record
}

func addressMap(addr commerce.Address) map[string]string {
	return map[string]string{
		"first_name": addr.FirstName,
		"last_name":  addr.LastName,
		"address1":   addr.Address1,
		"address2":   addr.Address2,
		"city":       addr.City,
		"state":      addr.State,
		"zip":        addr.Zip,
		"country":    addr.Country,
	}
}

func (s *Service) confirmationInfo(order *commerce.Order, snapshot *commerce.Cart) *email.ConfirmationInfo {
	info := &email.ConfirmationInfo{
		OrderNumber:   order.Number,
		OrderDate:     order.CreatedAt.Format("January 2, 2006"),
		CustomerEmail: order.Email,
		StoreName:     s.store.Store.Name,
		StoreURL:      s.store.Store.URL,
		Subtotal:      FormatAmount(order.SubtotalCents, order.Currency),
		Shipping:      FormatAmount(order.ShippingCents, order.Currency),
		Tax:           FormatAmount(order.TaxCents, order.Currency),
		Total:         FormatAmount(order.GrandTotalCents, order.Currency),
		PaymentMethod: order.PaymentMethod,
	}
	if order.Billing != nil {
		info.CustomerName = strings.TrimSpace(order.Billing.FirstName + " " + order.Billing.LastName)
	}
	if snapshot != nil {
		for _, item := range snapshot.Items {
			info.Items = append(info.Items, email.ConfirmationItem{
				Name:       item.Name,
				Quantity:   item.Quantity,
				TotalPrice: FormatAmount(item.TotalCents, snapshot.Currency),
			})
		}
	}
	return info
}

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"GBP": "£",
	"EUR": "€",
}

// FormatAmount renders integer cents as a display amount.
func FormatAmount(cents int64, currency string) string {
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
	}
	return fmt.Sprintf("%s%.2f", symbol, float64(cents)/100)
}
