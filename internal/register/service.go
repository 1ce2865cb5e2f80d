package register

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/Sagara39/canteen-kiosk/internal/ledger"
	"github.com/Sagara39/canteen-kiosk/internal/status"
)

var (
	ErrFlowMissing  = errors.New("no registration in progress for this session")
	ErrNotRetryable = errors.New("registration is not in an error state")

	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

const genericFailure = "An unexpected error occurred. Please try again."

// ValidationError reports a per-field form rejection, caught before any
// network interaction.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Profiles is the slice of the ledger registration writes to.
type Profiles interface {
	CreateProfile(ctx context.Context, profile *domain.UserProfile) error
}

// Taps is the status-channel surface the flow consumes.
type Taps interface {
	Subscribe(ctx context.Context) (<-chan string, error)
	Claim(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	SetMessage(ctx context.Context, message string) error
}

type Snapshot struct {
	State domain.RegisterState `json:"state"`
	Error string               `json:"error,omitempty"`
	TagID string               `json:"tag_id,omitempty"`
}

type flow struct {
	mu     sync.Mutex
	state  domain.RegisterState
	errMsg string
	name   string
	phone  string
	tagID  string
	cancel context.CancelFunc
}

func (f *flow) snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{State: f.state, Error: f.errMsg, TagID: f.tagID}
}

func (f *flow) is(state domain.RegisterState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == state
}

func (f *flow) transition(from, to domain.RegisterState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != from || !from.CanTransitionTo(to) {
		return false
	}
	f.state = to
	if to == domain.RegisterForm {
		f.errMsg = ""
	}
	return true
}

func (f *flow) fail(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = domain.RegisterError
	f.errMsg = msg
}

// Service runs one registration flow per kiosk session. Form data is
// collected first and the tap is required second; both uniqueness
// constraints are enforced inside the single profile write.
type Service struct {
	profiles      Profiles
	taps          Taps
	submitTimeout time.Duration

	mu    sync.Mutex
	flows map[string]*flow
}

func NewService(profiles Profiles, taps Taps) *Service {
	return &Service{
		profiles:      profiles,
		taps:          taps,
		submitTimeout: 30 * time.Second,
		flows:         make(map[string]*flow),
	}
}

// Submit validates the form, clears any stale hardware state and arms
// the tap wait. Resubmitting from the form state reuses the flow.
func (s *Service) Submit(ctx context.Context, sessionID, name, phone string) (Snapshot, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return Snapshot{}, &ValidationError{Field: "name", Message: "Name must be at least 2 characters."}
	}
	if !phonePattern.MatchString(phone) {
		return Snapshot{}, &ValidationError{Field: "phone_number", Message: "Please enter a valid 10-digit phone number."}
	}

	// discard any tap left over from a previous screen
	if err := s.taps.Clear(ctx); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	f, ok := s.flows[sessionID]
	s.mu.Unlock()

	if ok {
		f.mu.Lock()
		if f.state != domain.RegisterForm {
			state := f.state
			f.mu.Unlock()
			return Snapshot{State: state}, errors.New("registration already in progress")
		}
		f.name = name
		f.phone = phone
		f.state = domain.RegisterTapping
		f.mu.Unlock()
		return f.snapshot(), nil
	}

	flowCtx, cancel := context.WithCancel(context.Background())
	f = &flow{state: domain.RegisterTapping, name: name, phone: phone, cancel: cancel}

	s.mu.Lock()
	s.flows[sessionID] = f
	s.mu.Unlock()

	go s.run(flowCtx, f)
	return f.snapshot(), nil
}

func (s *Service) State(sessionID string) Snapshot {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	s.mu.Unlock()
	if !ok {
		return Snapshot{State: domain.RegisterForm}
	}
	return f.snapshot()
}

// Retry clears the channel and returns the flow to the form so the user
// can correct their details and submit again.
func (s *Service) Retry(ctx context.Context, sessionID string) (Snapshot, error) {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrFlowMissing
	}
	if !f.transition(domain.RegisterError, domain.RegisterForm) {
		return f.snapshot(), ErrNotRetryable
	}
	if err := s.taps.Clear(ctx); err != nil {
		log.Printf("register clear error: %v", err)
	}
	return f.snapshot(), nil
}

// Finish clears the channel and tears the flow down.
func (s *Service) Finish(ctx context.Context, sessionID string) {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	if ok {
		f.cancel()
		delete(s.flows, sessionID)
	}
	s.mu.Unlock()

	if err := s.taps.Clear(ctx); err != nil {
		log.Printf("register clear error: %v", err)
	}
}

func (s *Service) run(ctx context.Context, f *flow) {
	taps, err := s.taps.Subscribe(ctx)
	if err != nil {
		log.Printf("register subscribe error: %v", err)
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
			// taps outside the tapping state are ignored; in particular
			// a second tap after success is a silent no-op
			if !f.is(domain.RegisterTapping) {
				continue
			}

			tagID, err := s.taps.Claim(ctx)
			if errors.Is(err, status.ErrNoTap) {
				continue
			}
			if err != nil {
				log.Printf("register claim error: %v", err)
				f.fail(genericFailure)
				continue
			}

			if !f.transition(domain.RegisterTapping, domain.RegisterSubmitting) {
				continue
			}
			s.submit(tagID, f)
		}
	}
}

// submit creates the profile on a detached context so a started write is
// never abandoned halfway by navigation.
func (s *Service) submit(tagID string, f *flow) {
	f.mu.Lock()
	profile := &domain.UserProfile{
		TagID:         tagID,
		Name:          f.name,
		PhoneNumber:   f.phone,
		CreditBalance: 0,
		CreatedAt:     time.Now(),
	}
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()

	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		f.fail(submitMessage(err))
		return
	}

	if err := s.taps.SetMessage(ctx, domain.MessageRegistered); err != nil {
		log.Printf("register set message error: %v", err)
	}

	f.mu.Lock()
	f.state = domain.RegisterSuccess
	f.errMsg = ""
	f.tagID = tagID
	f.mu.Unlock()
}

func submitMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrPhoneInUse):
		return "This phone number is already registered."
	case errors.Is(err, ledger.ErrCardLinked):
		return "This card is already linked to an account."
	default:
		log.Printf("register submit error: %v", err)
		return genericFailure
	}
}
