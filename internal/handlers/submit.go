package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/stepshopapp/stepshop/internal/checkout"
	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/db"
	"github.com/stepshopapp/stepshop/ui/views"
)

// CreateAccount handles the optional account form on the payment step.
// Success is reported inline; the step flow does not move.
func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	state, err := h.checkoutState(w, r)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "We couldn't load your checkout. Please try again.")
		return
	}
	if h.redirectSubmitted(w, r, state) {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "We couldn't read that form submission.")
		return
	}

	input := commerce.AccountInput{
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}
	if snapshot := state.cartSync.Snapshot(); snapshot != nil && snapshot.Billing != nil {
		input.FirstName = snapshot.Billing.FirstName
		input.LastName = snapshot.Billing.LastName
	}

	account, err := h.checkoutService.CreateAccount(r.Context(), input)
	if err != nil {
		h.loggerFromContext(r.Context()).Warn("account creation rejected", "error", err)
		h.saveState(r, state)
		h.renderCheckout(w, r, state, state.cartSync.Snapshot(), commerce.UserMessage(err))
		return
	}

	state.data.AccountCreated = true
	state.data.AccountEmail = account.Email
	h.saveState(r, state)

	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

// SubmitOrder finalizes the checkout from the review step.
func (h *Handlers) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	state, err := h.checkoutState(w, r)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "We couldn't load your checkout. Please try again.")
		return
	}
	if h.redirectSubmitted(w, r, state) {
		return
	}

	result, err := h.checkoutService.Submit(r.Context(), state.cartSync)
	if errors.Is(err, checkout.ErrAlreadySubmitted) {
		// Another tab got there first; point the session back at the order.
		state.data.Submitted = true
		if state.data.OrderRecordID == "" {
			if record, lookupErr := h.checkoutService.RecordForCart(r.Context(), state.cartSync.CartID()); lookupErr == nil {
				state.data.OrderRecordID = record.ID.String()
				state.data.OrderNumber = record.Number
			}
		}
		h.saveState(r, state)
		if !h.redirectSubmitted(w, r, state) {
			http.Redirect(w, r, "/checkout", http.StatusSeeOther)
		}
		return
	}
	if err != nil {
		h.loggerFromContext(r.Context()).Warn("order submission failed", "error", err)
		h.saveState(r, state)
		h.renderCheckout(w, r, state, state.cartSync.Snapshot(), commerce.UserMessage(err))
		return
	}

	state.data.Submitted = true
	state.data.OrderNumber = result.Order.Number
	if result.Record != nil {
		state.data.OrderRecordID = result.Record.ID.String()
	}
	h.saveState(r, state)
	h.registry.Drop(state.sessionID)

	if result.Record != nil {
		http.Redirect(w, r, "/order/"+result.Record.ID.String(), http.StatusSeeOther)
		return
	}
	h.renderConfirmationFromOrder(w, r, result.Order)
}

// OrderConfirmation renders the confirmation page for a locally recorded
// order. The record must belong to the requesting session.
func (h *Handlers) OrderConfirmation(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	_, data, err := h.sessionManager.Get(r.Context(), r)
	if err != nil || data.OrderRecordID != recordID.String() {
		h.renderNotFound(w, r)
		return
	}

	record, err := h.checkoutService.OrderByRecordID(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.renderNotFound(w, r)
			return
		}
		h.loggerFromContext(r.Context()).Error("failed to load order record", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "We couldn't load your order. Please try again.")
		return
	}

	view := views.ConfirmationView{
		StoreName:    h.storefront.Store.Name,
		OrderNumber:  record.Number,
		Status:       record.Status,
		Paid:         record.Paid,
		CustomerName: record.CustomerName,
		Email:        record.Email,
		Subtotal:     checkout.FormatAmount(record.SubtotalCents, record.Currency),
		Shipping:     checkout.FormatAmount(record.ShippingCents, record.Currency),
		Tax:          checkout.FormatAmount(record.TaxCents, record.Currency),
		Total:        checkout.FormatAmount(record.TotalCents, record.Currency),
		Payment:      h.paymentSummary(data),
	}
	if err := views.ConfirmationPage(view).Render(r.Context(), w); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to render confirmation page", "error", err)
	}
}

// ResetCheckout clears the session and its cart synchronizer so the next
// visit to /checkout starts a fresh checkout, e.g. from the confirmation
// page's "start a new order" action.
func (h *Handlers) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	if sessionID, _, err := h.sessionManager.Get(r.Context(), r); err == nil {
		h.registry.Drop(sessionID)
	}
	h.sessionManager.Destroy(r.Context(), w, r)
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

// renderConfirmationFromOrder covers deployments without a local order
// store: confirmation renders directly from the platform response.
func (h *Handlers) renderConfirmationFromOrder(w http.ResponseWriter, r *http.Request, order *commerce.Order) {
	view := views.ConfirmationView{
		StoreName:   h.storefront.Store.Name,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		Paid:        order.Paid,
		Email:       order.Email,
		Subtotal:    checkout.FormatAmount(order.SubtotalCents, order.Currency),
		Shipping:    checkout.FormatAmount(order.ShippingCents, order.Currency),
		Tax:         checkout.FormatAmount(order.TaxCents, order.Currency),
		Total:       checkout.FormatAmount(order.GrandTotalCents, order.Currency),
		Payment:     order.PaymentMethod,
	}
	if order.Billing != nil {
		view.CustomerName = strings.TrimSpace(order.Billing.FirstName + " " + order.Billing.LastName)
	}
	if err := views.ConfirmationPage(view).Render(r.Context(), w); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to render confirmation page", "error", err)
	}
}

func (h *Handlers) renderNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	if err := views.NotFoundPage().Render(r.Context(), w); err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
	}
}
