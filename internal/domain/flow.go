package domain

// CheckoutState is the checkout flow state machine. A tap moves
// pending_tap to processing; the charge outcome moves processing to
// success or error; an explicit retry moves error back to pending_tap.
type CheckoutState string

const (
	CheckoutPendingTap CheckoutState = "pending_tap"
	CheckoutProcessing CheckoutState = "processing"
	CheckoutSuccess    CheckoutState = "success"
	CheckoutError      CheckoutState = "error"
)

func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	switch s {
	case CheckoutPendingTap:
		return next == CheckoutProcessing
	case CheckoutProcessing:
		return next == CheckoutSuccess || next == CheckoutError
	case CheckoutError:
		return next == CheckoutPendingTap
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutSuccess
}

func (s CheckoutState) String() string {
	return string(s)
}

// RegisterState is the registration flow state machine.
type RegisterState string

const (
	RegisterForm       RegisterState = "form"
	RegisterTapping    RegisterState = "tapping"
	RegisterSubmitting RegisterState = "submitting"
	RegisterSuccess    RegisterState = "success"
	RegisterError      RegisterState = "error"
)

func (s RegisterState) CanTransitionTo(next RegisterState) bool {
	switch s {
	case RegisterForm:
		return next == RegisterTapping
	case RegisterTapping:
		return next == RegisterSubmitting
	case RegisterSubmitting:
		return next == RegisterSuccess || next == RegisterError
	case RegisterError:
		return next == RegisterForm
	}
	return false
}

func (s RegisterState) String() string {
	return string(s)
}

// BalanceState is the read-only balance flow. Any tap drives the view
// back through loading, so balance and notFound are re-enterable.
type BalanceState string

const (
	BalancePrompt   BalanceState = "prompt"
	BalanceLoading  BalanceState = "loading"
	BalanceShown    BalanceState = "balance"
	BalanceNotFound BalanceState = "notFound"
)

func (s BalanceState) String() string {
	return string(s)
}
