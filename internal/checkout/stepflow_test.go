package checkout

import (
	"testing"

	"github.com/stepshopapp/stepshop/internal/commerce"
)

func cartWith(billing *commerce.Billing, shipping *commerce.Address) *commerce.Cart {
	return &commerce.Cart{
		ID:       "cart_1",
		Currency: "USD",
		Billing:  billing,
		Shipping: shipping,
	}
}

func TestNewStepFlowInitialState(t *testing.T) {
	t.Parallel()

	f := NewStepFlow()

	if got := f.Active(); got != StepCustomer {
		t.Fatalf("Active() = %q, want %q", got, StepCustomer)
	}
	for _, step := range f.Steps() {
		if step.Completed {
			t.Fatalf("step %q completed at session start", step.ID)
		}
	}
	assertSingleActive(t, f)
}

func TestAdvanceWalksSequence(t *testing.T) {
	t.Parallel()

	f := NewStepFlow()

	f.Advance()
	if got := f.Active(); got != StepShipping {
		t.Fatalf("Active() after first advance = %q, want %q", got, StepShipping)
	}
	if !f.IsCompleted(StepCustomer) {
		t.Fatal("customer not completed after advancing past it")
	}

	f.Advance()
	f.Advance()
	if got := f.Active(); got != StepReview {
		t.Fatalf("Active() = %q, want %q", got, StepReview)
	}

	// Advancing at the last step changes nothing.
	f.Advance()
	if got := f.Active(); got != StepReview {
		t.Fatalf("Active() after advance at last step = %q, want %q", got, StepReview)
	}
	if f.IsCompleted(StepReview) {
		t.Fatal("review marked completed by a no-op advance")
	}
	assertSingleActive(t, f)
}

func TestRetreatKeepsCompletion(t *testing.T) {
	t.Parallel()

	f := NewStepFlow()
	f.Advance()
	f.Advance()

	f.Retreat()
	if got := f.Active(); got != StepShipping {
		t.Fatalf("Active() after retreat = %q, want %q", got, StepShipping)
	}
	if !f.IsCompleted(StepCustomer) || !f.IsCompleted(StepShipping) {
		t.Fatal("retreat un-completed a step")
	}

	// Retreating at the first step is a no-op.
	f.Retreat()
	f.Retreat()
	if got := f.Active(); got != StepCustomer {
		t.Fatalf("Active() = %q, want %q", got, StepCustomer)
	}
	assertSingleActive(t, f)
}

func TestGoToGating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(f *StepFlow)
		target     StepID
		wantMoved  bool
		wantActive StepID
	}{
		{
			name:       "future step from initial state is rejected",
			setup:      func(f *StepFlow) {},
			target:     StepPayment,
			wantMoved:  false,
			wantActive: StepCustomer,
		},
		{
			name:       "current active step is allowed",
			setup:      func(f *StepFlow) {},
			target:     StepCustomer,
			wantMoved:  true,
			wantActive: StepCustomer,
		},
		{
			name: "completed step is allowed",
			setup: func(f *StepFlow) {
				f.Advance()
				f.Advance()
			},
			target:     StepCustomer,
			wantMoved:  true,
			wantActive: StepCustomer,
		},
		{
			name: "incomplete future step stays locked after partial progress",
			setup: func(f *StepFlow) {
				f.Advance()
			},
			target:     StepReview,
			wantMoved:  false,
			wantActive: StepShipping,
		},
		{
			name:       "unknown step id is rejected",
			setup:      func(f *StepFlow) {},
			target:     StepID("gift-wrap"),
			wantMoved:  false,
			wantActive: StepCustomer,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := NewStepFlow()
			tc.setup(f)

			moved := f.GoTo(tc.target)
			if moved != tc.wantMoved {
				t.Fatalf("GoTo(%q) = %v, want %v", tc.target, moved, tc.wantMoved)
			}
			if got := f.Active(); got != tc.wantActive {
				t.Fatalf("Active() = %q, want %q", got, tc.wantActive)
			}
			assertSingleActive(t, f)
		})
	}
}

func TestApplyCartDerivesCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		cart          *commerce.Cart
		wantActive    StepID
		wantCompleted []StepID
	}{
		{
			name:       "empty cart lands on customer",
			cart:       cartWith(nil, nil),
			wantActive: StepCustomer,
		},
		{
			name: "billing names and email complete customer",
			cart: cartWith(&commerce.Billing{
				Address: commerce.Address{FirstName: "A", LastName: "B"},
				Email:   "a@b.com",
			}, nil),
			wantActive:    StepShipping,
			wantCompleted: []StepID{StepCustomer},
		},
		{
			name: "resumed cart with shipping but no payment lands on payment",
			cart: cartWith(&commerce.Billing{
				Address: commerce.Address{FirstName: "A", LastName: "B"},
				Email:   "a@b.com",
			}, &commerce.Address{Address1: "1 Main St"}),
			wantActive:    StepPayment,
			wantCompleted: []StepID{StepCustomer, StepShipping},
		},
		{
			name: "fully supplied cart lands on review",
			cart: cartWith(&commerce.Billing{
				Address:         commerce.Address{FirstName: "A", LastName: "B"},
				Email:           "a@b.com",
				PaymentMethodID: "paypal",
			}, &commerce.Address{Address1: "1 Main St"}),
			wantActive:    StepReview,
			wantCompleted: []StepID{StepCustomer, StepShipping, StepPayment},
		},
		{
			name: "partial billing does not complete customer",
			cart: cartWith(&commerce.Billing{
				Address: commerce.Address{FirstName: "A"},
			}, nil),
			wantActive: StepCustomer,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := NewStepFlow()
			f.ApplyCart(tc.cart)

			if got := f.Active(); got != tc.wantActive {
				t.Fatalf("Active() = %q, want %q", got, tc.wantActive)
			}
			for _, id := range tc.wantCompleted {
				if !f.IsCompleted(id) {
					t.Fatalf("step %q not completed", id)
				}
			}
			assertSingleActive(t, f)
		})
	}
}

func TestApplyCartAutoSkipRunsOnce(t *testing.T) {
	t.Parallel()

	resumed := cartWith(&commerce.Billing{
		Address: commerce.Address{FirstName: "A", LastName: "B"},
		Email:   "a@b.com",
	}, &commerce.Address{Address1: "1 Main St"})

	f := NewStepFlow()
	f.ApplyCart(resumed)
	if got := f.Active(); got != StepPayment {
		t.Fatalf("Active() after first load = %q, want %q", got, StepPayment)
	}

	// The user navigates back; a subsequent derivation must not fight it.
	f.Retreat()
	if got := f.Active(); got != StepShipping {
		t.Fatalf("Active() after retreat = %q, want %q", got, StepShipping)
	}
	f.ApplyCart(resumed)
	if got := f.Active(); got != StepShipping {
		t.Fatalf("Active() re-derived after manual navigation = %q, want %q", got, StepShipping)
	}
}

func TestApplyCartNeverDemotes(t *testing.T) {
	t.Parallel()

	full := cartWith(&commerce.Billing{
		Address:         commerce.Address{FirstName: "A", LastName: "B"},
		Email:           "a@b.com",
		PaymentMethodID: "paypal",
	}, &commerce.Address{Address1: "1 Main St"})

	f := NewStepFlow()
	f.ApplyCart(full)

	// A later snapshot missing data must not reset completion.
	f.ApplyCart(cartWith(nil, nil))
	for _, id := range []StepID{StepCustomer, StepShipping, StepPayment} {
		if !f.IsCompleted(id) {
			t.Fatalf("step %q demoted by a sparser cart snapshot", id)
		}
	}
}

func TestFlowStateRoundTrip(t *testing.T) {
	t.Parallel()

	f := NewStepFlow()
	f.ApplyCart(cartWith(&commerce.Billing{
		Address: commerce.Address{FirstName: "A", LastName: "B"},
		Email:   "a@b.com",
	}, nil))
	f.GoTo(StepCustomer)

	restored := RestoreStepFlow(f.State())

	if got, want := restored.Active(), f.Active(); got != want {
		t.Fatalf("restored Active() = %q, want %q", got, want)
	}
	for _, id := range stepOrder {
		if restored.IsCompleted(id) != f.IsCompleted(id) {
			t.Fatalf("restored completion for %q diverged", id)
		}
	}

	// Auto-skip already ran; a restored flow must not re-trigger it.
	restored.ApplyCart(cartWith(&commerce.Billing{
		Address:         commerce.Address{FirstName: "A", LastName: "B"},
		Email:           "a@b.com",
		PaymentMethodID: "paypal",
	}, &commerce.Address{Address1: "1 Main St"}))
	if got := restored.Active(); got != StepCustomer {
		t.Fatalf("restored flow moved to %q on re-derivation, want %q", got, StepCustomer)
	}
}

func TestRestoreStepFlowInvalidState(t *testing.T) {
	t.Parallel()

	restored := RestoreStepFlow(FlowState{
		Active:    StepID("bogus"),
		Completed: []StepID{StepCustomer, StepID("bogus")},
	})

	if got := restored.Active(); got != StepCustomer {
		t.Fatalf("Active() = %q, want %q", got, StepCustomer)
	}
	if !restored.IsCompleted(StepCustomer) {
		t.Fatal("known completed step lost during restore")
	}
	assertSingleActive(t, restored)
}

func assertSingleActive(t *testing.T, f *StepFlow) {
	t.Helper()
	active := 0
	for _, step := range f.Steps() {
		if step.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("found %d active steps, want exactly 1", active)
	}
}
