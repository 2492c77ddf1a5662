package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// ConfirmationView is the order confirmation page model. Amounts are
// preformatted display strings.
type ConfirmationView struct {
	StoreName    string
	OrderNumber  string
	Status       string
	Paid         bool
	CustomerName string
	Email        string
	Subtotal     string
	Shipping     string
	Tax          string
	Total        string
	Payment      string
}

// ConfirmationPage renders the post-submission order confirmation.
func ConfirmationPage(view ConfirmationView) templ.Component {
	return layout("Order Confirmed", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section class="mx-auto max-w-xl rounded border border-gray-200 bg-white p-8">
<h1 class="mb-2 text-2xl font-bold text-green-700">Thank you for your order!</h1>
<p class="mb-6 text-gray-600">A confirmation email is on its way to %s.</p>
<dl class="space-y-2 text-sm">
<div class="flex justify-between"><dt class="font-medium">Order number</dt><dd>%s</dd></div>
<div class="flex justify-between"><dt class="font-medium">Status</dt><dd>%s</dd></div>`,
			templ.EscapeString(view.Email),
			templ.EscapeString(view.OrderNumber),
			templ.EscapeString(view.Status),
		); err != nil {
			return err
		}
		if view.Payment != "" {
			if _, err := fmt.Fprintf(w, `<div class="flex justify-between"><dt class="font-medium">Payment</dt><dd>%s</dd></div>`, templ.EscapeString(view.Payment)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<div class="flex justify-between"><dt>Subtotal</dt><dd>%s</dd></div>
<div class="flex justify-between"><dt>Shipping</dt><dd>%s</dd></div>
<div class="flex justify-between"><dt>Tax</dt><dd>%s</dd></div>
<div class="flex justify-between border-t border-gray-200 pt-2 font-semibold"><dt>Total</dt><dd>%s</dd></div>
</dl>
<p class="mt-8 text-sm text-gray-500">Thank you for shopping with %s.</p>
<form method="post" action="/checkout/reset" class="mt-4"><button type="submit" class="text-sm text-blue-600 underline">Start a new order</button></form>
</section>`,
			view.Subtotal, view.Shipping, view.Tax, view.Total,
			templ.EscapeString(view.StoreName),
		)
		return err
	}))
}
