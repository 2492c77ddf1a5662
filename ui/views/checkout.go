package views

import (
	"context"
	"fmt"
	"io"

	twmerge "github.com/Oudwins/tailwind-merge-go/pkg/twmerge"
	"github.com/a-h/templ"

	"github.com/stepshopapp/stepshop/internal/checkout"
	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/storefront"
)

// StepView is one entry of the step indicator.
type StepView struct {
	ID        checkout.StepID
	Title     string
	Completed bool
	Active    bool
}

// CheckoutView is everything the checkout page needs to render one step.
type CheckoutView struct {
	StoreName      string
	Steps          []StepView
	Active         checkout.StepID
	Cart           *commerce.Cart
	Error          string
	Methods        []storefront.PaymentMethod
	Countries      []string
	AccountCreated bool
	AccountEmail   string
	PaymentSummary string
}

// CheckoutPage renders the multi-step checkout for the currently active step.
func CheckoutPage(view CheckoutView) templ.Component {
	return layout(view.StoreName+" Checkout", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1 class="text-2xl font-bold mb-6">%s</h1>`, templ.EscapeString(view.StoreName+" Checkout")); err != nil {
			return err
		}
		if err := stepIndicator(view.Steps).Render(ctx, w); err != nil {
			return err
		}
		if view.Error != "" {
			if _, err := fmt.Fprintf(w, `<div class="mb-4 rounded border border-red-300 bg-red-50 px-4 py-3 text-sm text-red-700" role="alert">%s</div>`, templ.EscapeString(view.Error)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<div class="grid gap-8 md:grid-cols-[1fr_280px]"><section>`); err != nil {
			return err
		}

		var step templ.Component
		switch view.Active {
		case checkout.StepCustomer:
			step = customerStep(view.Cart)
		case checkout.StepShipping:
			step = shippingStep(view.Cart, view.Countries)
		case checkout.StepPayment:
			step = paymentStep(view)
		default:
			step = reviewStep(view)
		}
		if err := step.Render(ctx, w); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `</section>`); err != nil {
			return err
		}
		if err := cartSummary(view.Cart).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	}))
}

// stepIndicator renders the progress bar. Completed steps are clickable;
// future steps are inert labels.
func stepIndicator(steps []StepView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<nav class="mb-8 flex gap-2" aria-label="Checkout progress">`); err != nil {
			return err
		}
		for _, step := range steps {
			class := stepClass(step)
			title := templ.EscapeString(step.Title)
			if step.Completed && !step.Active {
				if _, err := fmt.Fprintf(w, `<form method="post" action="/checkout/step" class="flex-1"><input type="hidden" name="step" value="%s"><button type="submit" class="%s">%s</button></form>`,
					templ.EscapeString(string(step.ID)), class, title); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, `<div class="%s flex-1">%s</div>`, class, title); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</nav>`)
		return err
	})
}

func stepClass(step StepView) string {
	class := "w-full border-b-4 border-gray-200 pb-2 text-left text-sm font-medium text-gray-400"
	if step.Completed {
		class = twmerge.Merge(class, "border-green-500 text-green-700")
	}
	if step.Active {
		class = twmerge.Merge(class, "border-blue-600 text-blue-700")
	}
	return class
}

func customerStep(cart *commerce.Cart) templ.Component {
	var billing commerce.Billing
	if cart != nil && cart.Billing != nil {
		billing = *cart.Billing
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h2 class="mb-4 text-lg font-semibold">Customer Info</h2>
<form method="post" action="/checkout/customer" class="space-y-4">
%s%s%s
<button type="submit" class="rounded bg-blue-600 px-4 py-2 text-white">Continue</button>
</form>`,
			textField("first_name", "First name", billing.FirstName, true),
			textField("last_name", "Last name", billing.LastName, true),
			textField("email", "Email", billing.Email, true),
		)
		return err
	})
}

func shippingStep(cart *commerce.Cart, countries []string) templ.Component {
	var shipping commerce.Address
	if cart != nil && cart.Shipping != nil {
		shipping = *cart.Shipping
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h2 class="mb-4 text-lg font-semibold">Shipping</h2>
<form method="post" action="/checkout/shipping" class="space-y-4">
%s%s%s%s%s%s`,
			textField("address1", "Address", shipping.Address1, true),
			textField("address2", "Apartment, suite, etc.", shipping.Address2, false),
			textField("city", "City", shipping.City, true),
			textField("state", "State / Province", shipping.State, true),
			textField("zip", "Postal code", shipping.Zip, true),
			textField("phone", "Phone", shipping.Phone, false),
		); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<label class="block text-sm"><span class="mb-1 block font-medium">Country</span><select name="country" class="w-full rounded border border-gray-300 px-3 py-2">`); err != nil {
			return err
		}
		for _, country := range countries {
			selected := ""
			if country == shipping.Country {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, templ.EscapeString(country), selected, templ.EscapeString(country)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</select></label>
<div class="flex gap-3">`+backButton()+`<button type="submit" class="rounded bg-blue-600 px-4 py-2 text-white">Continue</button></div>
</form>`)
		return err
	})
}

func paymentStep(view CheckoutView) templ.Component {
	selected := ""
	if view.Cart != nil && view.Cart.Billing != nil {
		selected = view.Cart.Billing.PaymentMethodID
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h2 class="mb-4 text-lg font-semibold">Payment</h2>
<form method="post" action="/checkout/payment" class="space-y-4">`); err != nil {
			return err
		}
		for _, method := range view.Methods {
			checked := ""
			if method.ID == selected {
				checked = " checked"
			}
			if _, err := fmt.Fprintf(w, `<label class="flex items-center gap-2"><input type="radio" name="method" value="%s"%s> %s</label>`,
				templ.EscapeString(method.ID), checked, templ.EscapeString(method.Label)); err != nil {
				return err
			}
			if method.Card {
				if _, err := fmt.Fprintf(w, `<fieldset class="ml-6 space-y-3" data-card-fields>
%s
<div class="flex gap-3">%s%s%s</div>
</fieldset>`,
					textField("card_number", "Card number", "", false),
					textField("card_exp_month", "MM", "", false),
					textField("card_exp_year", "YYYY", "", false),
					textField("card_cvc", "CVC", "", false),
				); err != nil {
					return err
				}
			}
		}
		if _, err := io.WriteString(w, `<div class="flex gap-3">`+backButton()+`<button type="submit" class="rounded bg-blue-600 px-4 py-2 text-white">Continue</button></div>
</form>`); err != nil {
			return err
		}

		return accountSection(view).Render(ctx, w)
	})
}

// accountSection renders the optional account-creation form on the payment
// step. Success is reported inline; it never advances the flow.
func accountSection(view CheckoutView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if view.AccountCreated {
			_, err := fmt.Fprintf(w, `<div class="mt-8 rounded border border-green-300 bg-green-50 px-4 py-3 text-sm text-green-700">Account created for %s.</div>`, templ.EscapeString(view.AccountEmail))
			return err
		}
		email := ""
		if view.Cart != nil && view.Cart.Billing != nil {
			email = view.Cart.Billing.Email
		}
		_, err := fmt.Fprintf(w, `<details class="mt-8 rounded border border-gray-200 p-4">
<summary class="cursor-pointer text-sm font-medium">Create an account for faster checkout next time</summary>
<form method="post" action="/checkout/account" class="mt-4 space-y-4">
%s
<button type="submit" class="rounded bg-gray-800 px-4 py-2 text-white">Create account</button>
</form>
</details>`, textField("email", "Email", email, true))
		return err
	})
}

func reviewStep(view CheckoutView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h2 class="mb-4 text-lg font-semibold">Review &amp; Place Order</h2>`); err != nil {
			return err
		}
		cart := view.Cart
		if cart != nil {
			if cart.Billing != nil {
				if _, err := fmt.Fprintf(w, `<div class="mb-4 text-sm"><h3 class="font-medium">Contact</h3><p>%s %s<br>%s</p></div>`,
					templ.EscapeString(cart.Billing.FirstName), templ.EscapeString(cart.Billing.LastName), templ.EscapeString(cart.Billing.Email)); err != nil {
					return err
				}
			}
			if cart.Shipping != nil {
				if _, err := fmt.Fprintf(w, `<div class="mb-4 text-sm"><h3 class="font-medium">Ship to</h3><p>%s<br>%s, %s %s<br>%s</p></div>`,
					templ.EscapeString(cart.Shipping.Address1), templ.EscapeString(cart.Shipping.City),
					templ.EscapeString(cart.Shipping.State), templ.EscapeString(cart.Shipping.Zip),
					templ.EscapeString(cart.Shipping.Country)); err != nil {
					return err
				}
			}
			if cart.Billing != nil && cart.Billing.PaymentMethodID != "" {
				summary := view.PaymentSummary
				if summary == "" {
					summary = paymentLabel(view, cart.Billing.PaymentMethodID)
				}
				if _, err := fmt.Fprintf(w, `<div class="mb-4 text-sm"><h3 class="font-medium">Payment</h3><p>%s</p></div>`,
					templ.EscapeString(summary)); err != nil {
					return err
				}
			}
		}
		_, err := io.WriteString(w, `<form method="post" action="/checkout/submit" class="mt-6 flex gap-3">`+backButton()+`<button type="submit" class="rounded bg-green-600 px-6 py-2 font-semibold text-white">Place Order</button></form>`)
		return err
	})
}

func paymentLabel(view CheckoutView, methodID string) string {
	for _, method := range view.Methods {
		if method.ID == methodID {
			return method.Label
		}
	}
	return methodID
}

func cartSummary(cart *commerce.Cart) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<aside class="rounded border border-gray-200 bg-white p-4 text-sm"><h2 class="mb-3 font-semibold">Order Summary</h2>`); err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			_, err := io.WriteString(w, `<p class="text-gray-500">Your cart is empty.</p></aside>`)
			return err
		}
		for _, item := range cart.Items {
			if _, err := fmt.Fprintf(w, `<div class="mb-2 flex justify-between"><span>%s ×%d</span><span>%s</span></div>`,
				templ.EscapeString(item.Name), item.Quantity, checkout.FormatAmount(item.TotalCents, cart.Currency)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<hr class="my-3">
<div class="flex justify-between"><span>Subtotal</span><span>%s</span></div>
<div class="flex justify-between"><span>Shipping</span><span>%s</span></div>
<div class="flex justify-between"><span>Tax</span><span>%s</span></div>
<div class="mt-2 flex justify-between font-semibold"><span>Total</span><span>%s</span></div>
</aside>`,
			checkout.FormatAmount(cart.SubtotalCents, cart.Currency),
			checkout.FormatAmount(cart.ShippingCents, cart.Currency),
			checkout.FormatAmount(cart.TaxCents, cart.Currency),
			checkout.FormatAmount(cart.GrandTotalCents, cart.Currency),
		)
		return err
	})
}

func textField(name, label, value string, required bool) string {
	req := ""
	if required {
		req = " required"
	}
	return fmt.Sprintf(`<label class="block text-sm"><span class="mb-1 block font-medium">%s</span><input type="text" name="%s" value="%s" class="w-full rounded border border-gray-300 px-3 py-2"%s></label>`,
		templ.EscapeString(label), templ.EscapeString(name), templ.EscapeString(value), req)
}

func backButton() string {
	return `<button type="submit" name="nav" value="back" formaction="/checkout/step" formnovalidate class="rounded border border-gray-300 px-4 py-2">Back</button>`
}
