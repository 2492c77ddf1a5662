package checkout

import (
	"strings"

	"github.com/stepshopapp/stepshop/internal/commerce"
)

// StepID identifies one checkout step.
type StepID string

const (
	StepCustomer StepID = "customer"
	StepShipping StepID = "shipping"
	StepPayment  StepID = "payment"
	StepReview   StepID = "review"
)

// Step is one stage of the checkout flow. Completed is monotonic within a
// session; exactly one step is active at any time.
type Step struct {
	ID        StepID `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
}

var stepOrder = []StepID{StepCustomer, StepShipping, StepPayment, StepReview}

var stepTitles = map[StepID]string{
	StepCustomer: "Customer Info",
	StepShipping: "Shipping",
	StepPayment:  "Payment",
	StepReview:   "Review & Place Order",
}

// StepFlow derives navigable step state from cart snapshots and applies
// explicit navigation events. Completion is computed reactively from cart
// data; activation is an independent state variable so derivation never
// fights manual navigation.
type StepFlow struct {
	steps        []Step
	autoSkipDone bool
}

// NewStepFlow creates the fixed step sequence with customer active and
// every step incomplete.
func NewStepFlow() *StepFlow {
	f := &StepFlow{steps: make([]Step, 0, len(stepOrder))}
	for i, id := range stepOrder {
		f.steps = append(f.steps, Step{
			ID:     id,
			Title:  stepTitles[id],
			Active: i == 0,
		})
	}
	return f
}

// Steps returns a copy of the step sequence in display order.
func (f *StepFlow) Steps() []Step {
	steps := make([]Step, len(f.steps))
	copy(steps, f.steps)
	return steps
}

// Active returns the currently active step id.
func (f *StepFlow) Active() StepID {
	for _, step := range f.steps {
		if step.Active {
			return step.ID
		}
	}
	// Unreachable for a flow built through NewStepFlow or RestoreStepFlow.
	return stepOrder[0]
}

// IsCompleted reports whether the given step has been completed.
func (f *StepFlow) IsCompleted(id StepID) bool {
	if idx := f.indexOf(id); idx >= 0 {
		return f.steps[idx].Completed
	}
	return false
}

// Advance marks the active step completed and activates the next step.
// At the last step it is a no-op.
func (f *StepFlow) Advance() {
	current := f.indexOf(f.Active())
	if current < 0 || current == len(f.steps)-1 {
		return
	}
	f.steps[current].Completed = true
	f.activate(current + 1)
}

// Retreat activates the previous step. Moving backward never un-completes
// a step; at the first step it is a no-op.
func (f *StepFlow) Retreat() {
	current := f.indexOf(f.Active())
	if current <= 0 {
		return
	}
	f.activate(current - 1)
}

// GoTo activates the requested step only if it is already completed or is
// the active step. Unreachable requests are silently rejected: they signal
// a UI gating bug, not a user-facing condition.
func (f *StepFlow) GoTo(id StepID) bool {
	idx := f.indexOf(id)
	if idx < 0 {
		return false
	}
	if !f.steps[idx].Completed && !f.steps[idx].Active {
		return false
	}
	f.activate(idx)
	return true
}

// ApplyCart recomputes completion from the cart snapshot. The derivation
// is promote-only: it never demotes a step completed by a prior derivation
// or by Advance. On the first application per session it also lands the
// user on the first incomplete step, so a resumed cart skips past steps
// whose data is already supplied; later applications never move the active
// step, otherwise every cart refresh would fight manual back-navigation.
func (f *StepFlow) ApplyCart(cart *commerce.Cart) {
	for i := range f.steps {
		if stepCompletionFromCart(f.steps[i].ID, cart) {
			f.steps[i].Completed = true
		}
	}

	if f.autoSkipDone {
		return
	}
	f.autoSkipDone = true

	for i := range f.steps {
		if !f.steps[i].Completed {
			f.activate(i)
			return
		}
	}
	f.activate(len(f.steps) - 1)
}

// stepCompletionFromCart is the pure completion rule for one step given a
// cart snapshot.
func stepCompletionFromCart(id StepID, cart *commerce.Cart) bool {
	if cart == nil {
		return false
	}
	switch id {
	case StepCustomer:
		return cart.Billing != nil &&
			strings.TrimSpace(cart.Billing.FirstName) != "" &&
			strings.TrimSpace(cart.Billing.LastName) != "" &&
			strings.TrimSpace(cart.Billing.Email) != ""
	case StepShipping:
		return cart.Shipping != nil && strings.TrimSpace(cart.Shipping.Address1) != ""
	case StepPayment:
		return cart.Billing != nil && strings.TrimSpace(cart.Billing.PaymentMethodID) != ""
	default:
		return false
	}
}

func (f *StepFlow) indexOf(id StepID) int {
	for i, step := range f.steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

func (f *StepFlow) activate(idx int) {
	for i := range f.steps {
		f.steps[i].Active = i == idx
	}
}

// FlowState is the serializable form of a StepFlow, small enough to ride
// in the session store.
type FlowState struct {
	Active       StepID   `json:"active"`
	Completed    []StepID `json:"completed,omitempty"`
	AutoSkipDone bool     `json:"auto_skip_done"`
}

// State captures the flow for session persistence.
func (f *StepFlow) State() FlowState {
	state := FlowState{
		Active:       f.Active(),
		AutoSkipDone: f.autoSkipDone,
	}
	for _, step := range f.steps {
		if step.Completed {
			state.Completed = append(state.Completed, step.ID)
		}
	}
	return state
}

// RestoreStepFlow rebuilds a flow from persisted state. Unknown step ids
// and an invalid active id fall back to the initial flow shape.
func RestoreStepFlow(state FlowState) *StepFlow {
	f := NewStepFlow()
	for _, id := range state.Completed {
		if idx := f.indexOf(id); idx >= 0 {
			f.steps[idx].Completed = true
		}
	}
	if idx := f.indexOf(state.Active); idx >= 0 {
		f.activate(idx)
	}
	f.autoSkipDone = state.AutoSkipDone
	return f
}
