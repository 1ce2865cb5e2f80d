package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownMenuItem = errors.New("unknown menu item")

// Catalog is the slice of the menu repository the cart needs: item
// lookups at add time, so name and price get frozen into the cart.
type Catalog interface {
	GetItem(ctx context.Context, id string) (*domain.MenuItem, error)
}

type Service struct {
	repo    CartRepository
	cache   CartCache
	catalog Catalog
	sfg     singleflight.Group // Prevents cache stampede
}

func NewService(repo CartRepository, cache CartCache, catalog Catalog) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
	}
}

func (s *Service) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, sessionID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			// missing or expired storage degrades to an empty cart
			return &domain.Cart{
				SessionID: sessionID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), sessionID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem increments the quantity when the item is already in the cart,
// otherwise appends it with quantity 1 using the current catalog price.
func (s *Service) AddItem(ctx context.Context, sessionID, menuItemID string) error {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return err
	}

	for _, item := range cart.Items {
		if item.MenuItemID == menuItemID {
			errUpdate := s.repo.UpdateItemQuantity(ctx, sessionID, menuItemID, item.Quantity+1)
			if errUpdate != nil {
				log.Printf("repo update item quantity error: %v \n", errUpdate)
				return errUpdate
			}
			invalidateCache(s, sessionID)
			return nil
		}
	}

	menuItem, err := s.catalog.GetItem(ctx, menuItemID)
	if err != nil {
		return ErrUnknownMenuItem
	}

	errAdd := s.repo.AddItem(ctx, sessionID, domain.CartItem{
		MenuItemID: menuItem.ID,
		Name:       menuItem.Name,
		Price:      menuItem.Price,
		Quantity:   1,
	})
	if errAdd != nil {
		log.Printf("repo add item error: %v \n", errAdd)
		return errAdd
	}

	invalidateCache(s, sessionID)
	return nil
}

// SetQuantity updates an item's quantity; zero or below removes it.
func (s *Service) SetQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, menuItemID)
	}

	errUpdate := s.repo.UpdateItemQuantity(ctx, sessionID, menuItemID, quantity)
	if errUpdate != nil {
		log.Printf("repo update item quantity error: %v \n", errUpdate)
		return errUpdate
	}

	invalidateCache(s, sessionID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, menuItemID string) error {
	errRemove := s.repo.RemoveItem(ctx, sessionID, menuItemID)
	if errRemove != nil {
		log.Printf("repo remove item error: %v \n", errRemove)
		return errRemove
	}

	invalidateCache(s, sessionID)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	errDelete := s.repo.DeleteCart(ctx, sessionID)
	if errDelete != nil && !errors.Is(errDelete, ErrCartNotFound) {
		log.Printf("repo delete cart error: %v \n", errDelete)
		return errDelete
	}

	invalidateCache(s, sessionID)
	return nil
}

func invalidateCache(s *Service, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, sessionID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}
