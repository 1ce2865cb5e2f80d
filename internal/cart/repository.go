package cart

import (
	"context"
	"errors"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartRepository defines the interface for cart persistence.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) error
	RemoveItem(ctx context.Context, sessionID, menuItemID string) error
	DeleteCart(ctx context.Context, sessionID string) error
}
