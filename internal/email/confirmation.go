package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"
)

// ConfirmationInfo holds the rendered values for an order confirmation.
// Amounts are preformatted strings so templates stay currency-agnostic.
type ConfirmationInfo struct {
	OrderNumber   string
	OrderDate     string
	CustomerName  string
	CustomerEmail string
	StoreName     string
	StoreURL      string
	Items         []ConfirmationItem
	Subtotal      string
	Shipping      string
	Tax           string
	Total         string
	PaymentMethod string
}

type ConfirmationItem struct {
	Name       string
	Quantity   int
	TotalPrice string
}

// OrderMailer renders and sends order confirmations. Delivery failures are
// logged and swallowed; a placed order must never look failed because of
// mail trouble.
type OrderMailer struct {
	sender Sender
	logger *slog.Logger
}

func NewOrderMailer(sender Sender, logger *slog.Logger) (*OrderMailer, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderMailer{sender: sender, logger: logger.With("component", "order_mailer")}, nil
}

func (m *OrderMailer) SendConfirmation(ctx context.Context, info *ConfirmationInfo) {
	if info == nil || info.CustomerEmail == "" {
		return
	}
	if info.OrderDate == "" {
		info.OrderDate = time.Now().Format("January 2, 2006")
	}

	msg, err := renderConfirmation(info)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to render confirmation email", "error", err, "order_number", info.OrderNumber)
		return
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.ErrorContext(ctx, "failed to send confirmation email", "error", err, "order_number", info.OrderNumber)
		return
	}
	m.logger.InfoContext(ctx, "confirmation email sent", "order_number", info.OrderNumber)
}

func renderConfirmation(info *ConfirmationInfo) (*Message, error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := confirmationTextTmpl.Execute(&textBuf, info); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := confirmationHTMLTmpl.Execute(&htmlBuf, info); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &Message{
		To:      info.CustomerEmail,
		Subject: fmt.Sprintf("Order Confirmed - %s - %s", info.OrderNumber, info.StoreName),
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

var (
	confirmationTextTmpl = template.Must(template.New("confirmation_text").Parse(confirmationText))
	confirmationHTMLTmpl = template.Must(template.New("confirmation_html").Parse(confirmationHTML))
)

const confirmationText = `Thank you for your order!

Order Number: {{.OrderNumber}}
Order Date: {{.OrderDate}}

Items:
{{range .Items}}
- {{.Name}} x{{.Quantity}} - {{.TotalPrice}}
{{end}}

Subtotal: {{.Subtotal}}
Shipping: {{.Shipping}}
Tax: {{.Tax}}
Total: {{.Total}}
{{if .PaymentMethod}}Paid with: {{.PaymentMethod}}{{end}}

Thank you for shopping with {{.StoreName}}!
{{.StoreURL}}
`

const confirmationHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Confirmation</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
    .order-info { background: white; padding: 15px; border-radius: 6px; margin: 15px 0; }
    .items-table { width: 100%; border-collapse: collapse; margin: 15px 0; }
    .items-table th { text-align: left; padding: 10px; background: #f3f4f6; border-bottom: 2px solid #e5e7eb; }
    .items-table td { padding: 10px; border-bottom: 1px solid #e5e7eb; }
    .total { font-size: 18px; font-weight: bold; text-align: right; padding: 15px 0; }
    .footer { text-align: center; padding: 20px; color: #6b7280; font-size: 14px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Order Confirmed!</h1>
    <p>Thank you for your order, {{.CustomerName}}</p>
  </div>
  <div class="content">
    <div class="order-info">
      <strong>Order Number:</strong> {{.OrderNumber}}<br>
      <strong>Order Date:</strong> {{.OrderDate}}
    </div>

    <h3>Order Summary</h3>
    <table class="items-table">
      <thead>
        <tr>
          <th>Item</th>
          <th>Qty</th>
          <th>Price</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{.Quantity}}</td>
          <td>{{.TotalPrice}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="total">
      <p>Subtotal: {{.Subtotal}}</p>
      <p>Shipping: {{.Shipping}}</p>
      <p>Tax: {{.Tax}}</p>
      <p>Total: {{.Total}}</p>
    </div>

    {{if .PaymentMethod}}<p>Paid with {{.PaymentMethod}}.</p>{{end}}
  </div>
  <div class="footer">
    <p>Thank you for shopping with <a href="{{.StoreURL}}">{{.StoreName}}</a></p>
  </div>
</body>
</html>
`
