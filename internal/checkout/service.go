package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/Sagara39/canteen-kiosk/internal/ledger"
	"github.com/Sagara39/canteen-kiosk/internal/status"
)

var (
	ErrEmptyCart    = errors.New("cart is empty, nothing to checkout")
	ErrFlowMissing  = errors.New("no checkout in progress for this session")
	ErrNotRetryable = errors.New("checkout is not in an error state")
)

const genericFailure = "An unexpected error occurred. Please try again."

// Ledger is the slice of the ledger the checkout flow charges against.
type Ledger interface {
	Charge(ctx context.Context, tagID string, order *domain.Order) error
}

// Carts reads and clears the session cart around the charge.
type Carts interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// Taps is the status-channel surface the flow consumes: push
// notifications plus claim-and-clear consumption.
type Taps interface {
	Subscribe(ctx context.Context) (<-chan string, error)
	Claim(ctx context.Context) (string, error)
}

// Snapshot is the externally visible flow state.
type Snapshot struct {
	State domain.CheckoutState `json:"state"`
	Error string               `json:"error,omitempty"`
	Order *domain.Order        `json:"order,omitempty"`
}

type flow struct {
	mu     sync.Mutex
	state  domain.CheckoutState
	errMsg string
	order  *domain.Order
	cancel context.CancelFunc
}

func (f *flow) snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{State: f.state, Error: f.errMsg, Order: f.order}
}

func (f *flow) is(state domain.CheckoutState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == state
}

// transition moves the state machine only along a legal edge. Returns
// false when the flow moved on in the meantime, which also blocks
// re-entry while a charge is in flight.
func (f *flow) transition(from, to domain.CheckoutState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != from || !from.CanTransitionTo(to) {
		return false
	}
	f.state = to
	if to == domain.CheckoutPendingTap {
		f.errMsg = ""
	}
	return true
}

func (f *flow) fail(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = domain.CheckoutError
	f.errMsg = msg
}

// Service runs one checkout flow per kiosk session.
type Service struct {
	ledger        Ledger
	carts         Carts
	taps          Taps
	chargeTimeout time.Duration

	mu    sync.Mutex
	flows map[string]*flow
}

func NewService(repo Ledger, carts Carts, taps Taps) *Service {
	return &Service{
		ledger:        repo,
		carts:         carts,
		taps:          taps,
		chargeTimeout: 30 * time.Second,
		flows:         make(map[string]*flow),
	}
}

// Begin arms a checkout for the session. An empty cart is rejected, and
// a previous flow for the same session is torn down first.
func (s *Service) Begin(ctx context.Context, sessionID string) (Snapshot, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if cart.ItemCount() == 0 {
		return Snapshot{}, ErrEmptyCart
	}

	flowCtx, cancel := context.WithCancel(context.Background())
	f := &flow{state: domain.CheckoutPendingTap, cancel: cancel}

	s.mu.Lock()
	if old, ok := s.flows[sessionID]; ok {
		old.cancel()
	}
	s.flows[sessionID] = f
	s.mu.Unlock()

	go s.run(flowCtx, sessionID, f)
	return f.snapshot(), nil
}

// State reports the current flow snapshot.
func (s *Service) State(sessionID string) (Snapshot, error) {
	f, ok := s.flow(sessionID)
	if !ok {
		return Snapshot{}, ErrFlowMissing
	}
	return f.snapshot(), nil
}

// Retry re-arms an errored flow. A fresh tap is required: the tag that
// caused the failure was already consumed by Claim.
func (s *Service) Retry(sessionID string) (Snapshot, error) {
	f, ok := s.flow(sessionID)
	if !ok {
		return Snapshot{}, ErrFlowMissing
	}
	if !f.transition(domain.CheckoutError, domain.CheckoutPendingTap) {
		return f.snapshot(), ErrNotRetryable
	}
	return f.snapshot(), nil
}

// Cancel unsubscribes the flow. A charge already in flight still runs to
// completion on its own context; only its UI outcome is discarded.
func (s *Service) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[sessionID]; ok {
		f.cancel()
		delete(s.flows, sessionID)
	}
}

func (s *Service) flow(sessionID string) (*flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[sessionID]
	return f, ok
}

func (s *Service) run(ctx context.Context, sessionID string, f *flow) {
	taps, err := s.taps.Subscribe(ctx)
	if err != nil {
		log.Printf("checkout subscribe error: %v", err)
		f.fail(genericFailure)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-taps:
			if !ok {
				return
			}
			if !f.is(domain.CheckoutPendingTap) {
				continue // errored flow waits for explicit retry
			}

			tagID, err := s.taps.Claim(ctx)
			if errors.Is(err, status.ErrNoTap) {
				continue // another flow consumed this tap
			}
			if err != nil {
				log.Printf("checkout claim error: %v", err)
				f.fail(genericFailure)
				continue
			}

			if !f.transition(domain.CheckoutPendingTap, domain.CheckoutProcessing) {
				continue
			}

			if s.charge(ctx, sessionID, tagID, f) {
				return // success is terminal
			}
		}
	}
}

// charge runs the balance transaction and reports whether the flow
// reached its terminal success state. The transaction itself runs on a
// detached context: navigating away must not abort a deduction that the
// ledger may already be applying.
func (s *Service) charge(ctx context.Context, sessionID, tagID string, f *flow) bool {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		log.Printf("checkout cart read error: %v", err)
		f.fail(genericFailure)
		return false
	}
	if cart.ItemCount() == 0 {
		f.fail("Your cart is empty.")
		return false
	}

	order := domain.NewOrder(tagID, cart)

	chargeCtx, cancel := context.WithTimeout(context.Background(), s.chargeTimeout)
	defer cancel()

	if err := s.ledger.Charge(chargeCtx, tagID, order); err != nil {
		f.fail(chargeMessage(err))
		return false
	}

	clearCtx, cancelClear := context.WithTimeout(context.Background(), s.chargeTimeout)
	defer cancelClear()
	if err := s.carts.ClearCart(clearCtx, sessionID); err != nil {
		// the charge committed; the stale cart is an annoyance, not a loss
		log.Printf("checkout clear cart error: %v", err)
	}

	f.mu.Lock()
	f.state = domain.CheckoutSuccess
	f.errMsg = ""
	f.order = order
	f.mu.Unlock()
	return true
}

func chargeMessage(err error) string {
	var insufficient *ledger.InsufficientFundsError
	switch {
	case errors.Is(err, ledger.ErrNotRegistered):
		return "Card not registered. Please register your card."
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Insufficient funds. Your balance is Rs. %.2f", insufficient.Balance)
	default:
		log.Printf("checkout charge error: %v", err)
		return genericFailure
	}
}
