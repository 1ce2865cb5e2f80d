package balance

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/Sagara39/canteen-kiosk/internal/ledger"
	"github.com/Sagara39/canteen-kiosk/internal/status"
)

var ErrFlowMissing = errors.New("no balance check in progress for this session")

// Profiles is the read-only ledger slice the balance flow queries.
type Profiles interface {
	GetProfile(ctx context.Context, tagID string) (*domain.UserProfile, error)
}

// Taps is the status-channel surface the flow consumes.
type Taps interface {
	Subscribe(ctx context.Context) (<-chan string, error)
	Claim(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	SetMessage(ctx context.Context, message string) error
}

type Snapshot struct {
	State   domain.BalanceState `json:"state"`
	Name    string              `json:"name,omitempty"`
	Balance float64             `json:"balance,omitempty"`
}

type flow struct {
	mu      sync.Mutex
	state   domain.BalanceState
	name    string
	balance float64
	cancel  context.CancelFunc
}

func (f *flow) snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{State: f.state, Name: f.name, Balance: f.balance}
}

func (f *flow) set(state domain.BalanceState, name string, balance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.name = name
	f.balance = balance
}

// Service runs the read-only balance screen: prompt until a tap, then
// the linked profile's balance or a not-found view. No ledger mutation
// happens here; every further tap re-drives the lookup.
type Service struct {
	profiles    Profiles
	taps        Taps
	loadTimeout time.Duration

	mu    sync.Mutex
	flows map[string]*flow
}

func NewService(profiles Profiles, taps Taps) *Service {
	return &Service{
		profiles:    profiles,
		taps:        taps,
		loadTimeout: 10 * time.Second,
		flows:       make(map[string]*flow),
	}
}

func (s *Service) Begin(ctx context.Context, sessionID string) (Snapshot, error) {
	// drop whatever tap a previous screen left behind
	if err := s.taps.Clear(ctx); err != nil {
		return Snapshot{}, err
	}

	flowCtx, cancel := context.WithCancel(context.Background())
	f := &flow{state: domain.BalancePrompt, cancel: cancel}

	s.mu.Lock()
	if old, ok := s.flows[sessionID]; ok {
		old.cancel()
	}
	s.flows[sessionID] = f
	s.mu.Unlock()

	go s.run(flowCtx, f)
	return f.snapshot(), nil
}

func (s *Service) State(sessionID string) (Snapshot, error) {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrFlowMissing
	}
	return f.snapshot(), nil
}

func (s *Service) End(ctx context.Context, sessionID string) {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	if ok {
		f.cancel()
		delete(s.flows, sessionID)
	}
	s.mu.Unlock()

	if err := s.taps.Clear(ctx); err != nil {
		log.Printf("balance clear error: %v", err)
	}
}

func (s *Service) run(ctx context.Context, f *flow) {
	taps, err := s.taps.Subscribe(ctx)
	if err != nil {
		log.Printf("balance subscribe error: %v", err)
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

			tagID, err := s.taps.Claim(ctx)
			if errors.Is(err, status.ErrNoTap) {
				continue
			}
			if err != nil {
				log.Printf("balance claim error: %v", err)
				continue
			}

			f.set(domain.BalanceLoading, "", 0)
			s.lookup(tagID, f)
		}
	}
}

func (s *Service) lookup(tagID string, f *flow) {
	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()

	profile, err := s.profiles.GetProfile(ctx, tagID)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotRegistered) {
			log.Printf("balance lookup error: %v", err)
		}
		f.set(domain.BalanceNotFound, "", 0)
		if e2 := s.taps.SetMessage(ctx, domain.MessageUnregistered); e2 != nil {
			log.Printf("balance set message error: %v", e2)
		}
		return
	}

	f.set(domain.BalanceShown, profile.Name, profile.CreditBalance)
}
