package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
)

var (
	ErrNotRegistered = errors.New("card not registered")
	ErrPhoneInUse    = errors.New("phone number already registered")
	ErrCardLinked    = errors.New("card already linked to a profile")
)

// InsufficientFundsError carries the balance seen inside the failed
// charge so the flow can include it in the user-facing message.
type InsufficientFundsError struct {
	Balance float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance is %.2f", e.Balance)
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is one pending row of the transactional outbox.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
}

// LedgerRepository is the profile and order store shared by the
// checkout, registration and balance flows.
type LedgerRepository interface {
	CreateProfile(ctx context.Context, profile *domain.UserProfile) error
	GetProfile(ctx context.Context, tagID string) (*domain.UserProfile, error)
	Charge(ctx context.Context, tagID string, order *domain.Order) error
	ListOrders(ctx context.Context, tagID string) ([]*domain.Order, error)
	UnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
	RunMigrations(*Credentials) error
	Close() error
}
