package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/stepshopapp/stepshop/internal/cache"
	"github.com/stepshopapp/stepshop/internal/checkout"
	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/crypto"
	"github.com/stepshopapp/stepshop/internal/payments"
	"github.com/stepshopapp/stepshop/internal/session"
	"github.com/stepshopapp/stepshop/ui/views"
)

const checkoutRecoverTTL = time.Hour

var formValidator = validator.New()

// paymentSelection is the at-rest record of what the shopper picked on the
// payment step. It is sealed before it reaches the session store.
type paymentSelection struct {
	MethodID string `json:"method_id"`
	Label    string `json:"label,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Last4    string `json:"last4,omitempty"`
}

type customerForm struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
}

type shippingForm struct {
	Address1 string `validate:"required"`
	Address2 string
	City     string `validate:"required"`
	State    string `validate:"required"`
	Zip      string `validate:"required"`
	Country  string `validate:"required,len=2"`
	Phone    string
}

// checkoutState bundles everything a checkout request needs: the session,
// its cart synchronizer, and the restored step flow.
type checkoutState struct {
	sessionID string
	data      *session.Data
	cartSync  *checkout.CartSync
	flow      *checkout.StepFlow
}

func (h *Handlers) checkoutState(w http.ResponseWriter, r *http.Request) (*checkoutState, error) {
	sessionID, data, err := h.sessionManager.Ensure(r.Context(), w, r)
	if err != nil {
		return nil, err
	}
	return &checkoutState{
		sessionID: sessionID,
		data:      data,
		cartSync:  h.registry.ForSession(sessionID, data.CartID),
		flow:      checkout.RestoreStepFlow(data.Flow),
	}, nil
}

func (h *Handlers) saveState(r *http.Request, state *checkoutState) {
	state.data.Flow = state.flow.State()
	state.data.CartID = state.cartSync.CartID()
	if err := h.sessionManager.Update(r.Context(), state.sessionID, state.data); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to persist checkout session", "error", err)
	}
}

// CheckoutPage renders the active step. A checkout_id query parameter
// resumes an externally issued checkout before rendering.
func (h *Handlers) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	checkoutID := strings.TrimSpace(r.URL.Query().Get("checkout_id"))
	if checkoutID == "" {
		checkoutID = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if checkoutID != "" {
		h.recoverCheckout(w, r, checkoutID)
		return
	}

	state, err := h.checkoutState(w, r)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "We couldn't start your checkout. Please try again.")
		return
	}
	if h.redirectSubmitted(w, r, state) {
		return
	}

	cart, err := state.cartSync.Fetch(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to fetch cart", "error", err)
		h.renderError(w, r, http.StatusBadGateway, commerce.UserMessage(err))
		return
	}

	state.flow.ApplyCart(cart)
	h.saveState(r, state)
	h.renderCheckout(w, r, state, cart, "")
}

// RecoverCheckout resumes a checkout from a path identifier, e.g. a link
// in an abandoned-cart email.
func (h *Handlers) RecoverCheckout(w http.ResponseWriter, r *http.Request) {
	h.recoverCheckout(w, r, mux.Vars(r)["checkoutID"])
}

func (h *Handlers) recoverCheckout(w http.ResponseWriter, r *http.Request, checkoutID string) {
	state, err := h.checkoutState(w, r)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "We couldn't start your checkout. Please try again.")
		return
	}

	// A recently resolved identifier is served from the cache so repeated
	// clicks on the same link skip the platform's recovery endpoint.
	if cartID, cacheErr := h.cacheProvider.Get(r.Context(), cache.CheckoutKey(checkoutID)); cacheErr == nil && cartID != "" {
		if current := state.cartSync.CartID(); current == "" || current == cartID {
			state.cartSync.Adopt(cartID)
			if cart, fetchErr := state.cartSync.Fetch(r.Context()); fetchErr == nil {
				state.data.CheckoutID = checkoutID
				state.flow.ApplyCart(cart)
				h.saveState(r, state)
				http.Redirect(w, r, "/checkout", http.StatusSeeOther)
				return
			}
		}
	}

	cart, err := state.cartSync.LoadByCheckoutID(r.Context(), checkoutID)
	if err != nil {
		logger := h.loggerFromContext(r.Context())
		if commerce.IsNotFoundError(err) {
			logger.Warn("checkout identifier not found", "checkout_id", checkoutID)
			h.renderError(w, r, http.StatusNotFound, commerce.UserMessage(err))
			return
		}
		logger.Error("failed to recover checkout", "error", err, "checkout_id", checkoutID)
		h.renderError(w, r, http.StatusBadGateway, commerce.UserMessage(err))
		return
	}

	if err := h.cacheProvider.Set(r.Context(), cache.CheckoutKey(checkoutID), cart.ID, checkoutRecoverTTL); err != nil {
		h.loggerFromContext(r.Context()).Warn("failed to cache recovered checkout", "error", err)
	}

	state.data.CheckoutID = checkoutID
	state.flow.ApplyCart(cart)
	h.saveState(r, state)

	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

// CustomerStep handles the customer info form.
func (h *Handlers) CustomerStep(w http.ResponseWriter, r *http.Request) {
	h.handleStep(w, r, checkout.StepCustomer, func(r *http.Request, state *checkoutState) (commerce.CartMutation, error) {
		form := customerForm{
			FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
			LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
			Email:     strings.TrimSpace(r.PostFormValue("email")),
		}
		if err := formValidator.Struct(form); err != nil {
			return commerce.CartMutation{}, &commerce.ValidationError{Message: "Please fill in your name and a valid email address."}
		}
		return commerce.CartMutation{Billing: &commerce.BillingMutation{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Email:     form.Email,
		}}, nil
	})
}

// ShippingStep handles the shipping address form.
func (h *Handlers) ShippingStep(w http.ResponseWriter, r *http.Request) {
	h.handleStep(w, r, checkout.StepShipping, func(r *http.Request, state *checkoutState) (commerce.CartMutation, error) {
		form := shippingForm{
			Address1: strings.TrimSpace(r.PostFormValue("address1")),
			Address2: strings.TrimSpace(r.PostFormValue("address2")),
			City:     strings.TrimSpace(r.PostFormValue("city")),
			State:    strings.TrimSpace(r.PostFormValue("state")),
			Zip:      strings.TrimSpace(r.PostFormValue("zip")),
			Country:  strings.ToUpper(strings.TrimSpace(r.PostFormValue("country"))),
			Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		}
		if err := formValidator.Struct(form); err != nil {
			return commerce.CartMutation{}, &commerce.ValidationError{Message: "Please fill in the required address fields."}
		}
		if !h.storefront.CountryAllowed(form.Country) {
			return commerce.CartMutation{}, &commerce.ValidationError{Field: "country", Message: "We can't ship to that country yet."}
		}

		mutation := &commerce.ShippingMutation{
			Address1: form.Address1,
			Address2: form.Address2,
			City:     form.City,
			State:    form.State,
			Zip:      form.Zip,
			Country:  form.Country,
			Phone:    form.Phone,
		}
		// Name carries over from the customer step.
		if snapshot := state.cartSync.Snapshot(); snapshot != nil && snapshot.Billing != nil {
			mutation.FirstName = snapshot.Billing.FirstName
			mutation.LastName = snapshot.Billing.LastName
		}
		return commerce.CartMutation{Shipping: mutation}, nil
	})
}

// PaymentStep handles payment method selection, tokenizing card details
// when the card method is chosen. Raw card numbers never reach the
// platform or the session store.
func (h *Handlers) PaymentStep(w http.ResponseWriter, r *http.Request) {
	h.handleStep(w, r, checkout.StepPayment, func(r *http.Request, state *checkoutState) (commerce.CartMutation, error) {
		methodID := strings.TrimSpace(r.PostFormValue("method"))
		method, ok := h.storefront.Method(methodID)
		if !ok {
			return commerce.CartMutation{}, &commerce.ValidationError{Field: "method", Message: "Please choose a payment method."}
		}

		selection := paymentSelection{MethodID: method.ID, Label: method.Label}
		if method.Card {
			if h.tokenizer == nil {
				return commerce.CartMutation{}, &commerce.PaymentError{Code: "cards_unavailable", Message: "card payments are not configured"}
			}
			token, err := h.tokenizer.Tokenize(r.Context(), payments.CardDetails{
				Number:   strings.TrimSpace(r.PostFormValue("card_number")),
				ExpMonth: strings.TrimSpace(r.PostFormValue("card_exp_month")),
				ExpYear:  strings.TrimSpace(r.PostFormValue("card_exp_year")),
				CVC:      strings.TrimSpace(r.PostFormValue("card_cvc")),
				Name:     billingName(state.cartSync.Snapshot()),
			})
			if err != nil {
				return commerce.CartMutation{}, err
			}
			selection.MethodID = token.ID
			selection.Brand = token.Brand
			selection.Last4 = token.Last4
		}

		sealed, err := crypto.SealJSON(h.sealer, selection)
		if err != nil {
			return commerce.CartMutation{}, err
		}
		state.data.PaymentSelection = sealed

		return commerce.CartMutation{Payment: &commerce.PaymentMutation{MethodID: selection.MethodID}}, nil
	})
}

// handleStep runs one step form: build the whitelisted mutation, push it
// through the cart synchronizer, advance on success, re-render in place
// on failure. Always PRG on success so refreshes stay idempotent.
func (h *Handlers) handleStep(w http.ResponseWriter, r *http.Request, step checkout.StepID, build func(*http.Request, *checkoutState) (commerce.CartMutation, error)) {
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

	if state.cartSync.CartID() == "" {
		if _, err := state.cartSync.Fetch(r.Context()); err != nil {
			h.renderError(w, r, http.StatusBadGateway, commerce.UserMessage(err))
			return
		}
	}

	// The form belongs to the step it was rendered for; keep the flow there
	// while handling it so errors land on the right step.
	state.flow.GoTo(step)

	mutation, err := build(r, state)
	if err == nil {
		_, err = state.cartSync.Update(r.Context(), mutation)
	}
	if err != nil {
		h.loggerFromContext(r.Context()).Warn("checkout step rejected", "step", string(step), "error", err)
		h.saveState(r, state)
		h.renderCheckout(w, r, state, state.cartSync.Snapshot(), commerce.UserMessage(err))
		return
	}

	state.flow.ApplyCart(state.cartSync.Snapshot())
	state.flow.GoTo(step)
	state.flow.Advance()
	h.saveState(r, state)

	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

// Navigate handles explicit step navigation: the back button and clicks on
// completed steps in the indicator. Unreachable targets are ignored.
func (h *Handlers) Navigate(w http.ResponseWriter, r *http.Request) {
	state, err := h.checkoutState(w, r)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "We couldn't load your checkout. Please try again.")
		return
	}
	if h.redirectSubmitted(w, r, state) {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/checkout", http.StatusSeeOther)
		return
	}

	if r.PostFormValue("nav") == "back" {
		state.flow.Retreat()
	} else if target := strings.TrimSpace(r.PostFormValue("step")); target != "" {
		state.flow.GoTo(checkout.StepID(target))
	}

	h.saveState(r, state)
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

func (h *Handlers) redirectSubmitted(w http.ResponseWriter, r *http.Request, state *checkoutState) bool {
	if !state.data.Submitted {
		return false
	}
	if state.data.OrderRecordID != "" {
		http.Redirect(w, r, "/order/"+state.data.OrderRecordID, http.StatusSeeOther)
		return true
	}
	h.renderError(w, r, http.StatusOK, "Your order has already been placed. Order number: "+state.data.OrderNumber)
	return true
}

func (h *Handlers) renderCheckout(w http.ResponseWriter, r *http.Request, state *checkoutState, cart *commerce.Cart, errMsg string) {
	view := views.CheckoutView{
		StoreName:      h.storefront.Store.Name,
		Active:         state.flow.Active(),
		Cart:           cart,
		Error:          errMsg,
		Methods:        h.storefront.Payments.Methods,
		Countries:      h.storefront.Shipping.AllowedCountries,
		AccountCreated: state.data.AccountCreated,
		AccountEmail:   state.data.AccountEmail,
		PaymentSummary: h.paymentSummary(state.data),
	}
	for _, step := range state.flow.Steps() {
		title := step.Title
		if override := h.storefront.StepTitle(string(step.ID)); override != "" {
			title = override
		}
		view.Steps = append(view.Steps, views.StepView{
			ID:        step.ID,
			Title:     title,
			Completed: step.Completed,
			Active:    step.Active,
		})
	}

	if err := views.CheckoutPage(view).Render(r.Context(), w); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to render checkout page", "error", err)
	}
}

// paymentSummary decodes the sealed payment selection for display, e.g.
// "Visa ending in 4242" on the review step.
func (h *Handlers) paymentSummary(data *session.Data) string {
	if data == nil || data.PaymentSelection == "" {
		return ""
	}
	var selection paymentSelection
	if err := crypto.OpenJSON(h.sealer, data.PaymentSelection, &selection); err != nil {
		return ""
	}
	if selection.Last4 != "" {
		brand := selection.Brand
		if brand == "" {
			brand = "Card"
		}
		return brand + " ending in " + selection.Last4
	}
	return selection.Label
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.WriteHeader(status)
	if err := views.ErrorPage(message).Render(r.Context(), w); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to render error page", "error", err)
		http.Error(w, message, status)
	}
}

func billingName(cart *commerce.Cart) string {
	if cart == nil || cart.Billing == nil {
		return ""
	}
	return strings.TrimSpace(cart.Billing.FirstName + " " + cart.Billing.LastName)
}
