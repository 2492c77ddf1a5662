// Package views renders the checkout pages. Components are plain templ
// components so handlers can compose and stream them.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<link rel="stylesheet" href="/assets/css/checkout.css">
</head>
<body class="bg-gray-50 text-gray-900">
<main class="mx-auto max-w-3xl px-4 py-8">`, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main>
<script src="/assets/js/checkout.js" defer></script>
</body>
</html>`)
		return err
	})
}

// NotFoundPage renders the 404 page.
func NotFoundPage() templ.Component {
	return layout("Page Not Found", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<section class="text-center py-16">
<h1 class="text-3xl font-bold mb-4">Page not found</h1>
<p class="text-gray-600 mb-6">The page you are looking for does not exist.</p>
<a href="/checkout" class="text-blue-600 underline">Back to checkout</a>
</section>`)
		return err
	}))
}

// ErrorPage renders a full-page failure with a retry link. Step-local
// errors render inline on the checkout page instead.
func ErrorPage(message string) templ.Component {
	return layout("Something Went Wrong", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="text-center py-16">
<h1 class="text-3xl font-bold mb-4">Something went wrong</h1>
<p class="text-gray-600 mb-6">%s</p>
<a href="/checkout" class="inline-block rounded bg-blue-600 px-4 py-2 text-white">Try again</a>
</section>`, templ.EscapeString(message))
		return err
	}))
}
