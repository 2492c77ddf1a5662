package commerce

import (
	"errors"
	"fmt"
)

// NetworkError wraps transport-level failures and 5xx responses. Transient;
// recoverable by a user-initiated retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return "commerce: network error"
	}
	return fmt.Sprintf("commerce: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports a missing or malformed required field. The user
// corrects input and resubmits.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("commerce: validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("commerce: validation failed: %s", e.Message)
}

// PaymentError reports a gateway decline or misconfiguration. The user
// retries or switches method; there is no silent fallback.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("commerce: payment failed (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("commerce: payment failed: %s", e.Message)
}

// InventoryError reports that an item is no longer available. The user must
// modify cart contents before submitting again.
type InventoryError struct {
	SKU     string
	Message string
}

func (e *InventoryError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("commerce: item unavailable (%s): %s", e.SKU, e.Message)
	}
	return fmt.Sprintf("commerce: item unavailable: %s", e.Message)
}

// NotFoundError reports an unresolvable checkout identifier or cart.
// Terminal for the session; the user must restart checkout.
type NotFoundError struct {
	CheckoutID string
}

func (e *NotFoundError) Error() string {
	if e.CheckoutID != "" {
		return fmt.Sprintf("commerce: checkout %q not found", e.CheckoutID)
	}
	return "commerce: cart not found"
}

func IsNetworkError(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsPaymentError(err error) bool {
	var target *PaymentError
	return errors.As(err, &target)
}

func IsInventoryError(err error) bool {
	var target *InventoryError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// UserMessage maps a classified failure to the step-local message shown to
// the shopper. Unclassified errors read as transient.
func UserMessage(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	var paymentErr *PaymentError
	if errors.As(err, &paymentErr) {
		return "Your payment could not be processed. Check your payment details or try a different method."
	}
	var inventoryErr *InventoryError
	if errors.As(err, &inventoryErr) {
		return "An item in your cart is no longer available. Please review your cart before continuing."
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return "We couldn't find that checkout. The link may have expired."
	}
	return "Something went wrong on our side. Please try again."
}
