package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockRepository) GetCart(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockRepository) AddItem(_ context.Context, sessionID string, item domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		m.cart = &domain.Cart{SessionID: sessionID}
	}
	m.cart.Items = append(m.cart.Items, item)
	return nil
}

func (m *mockRepository) UpdateItemQuantity(_ context.Context, _ string, menuItemID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].MenuItemID == menuItemID {
			m.cart.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *mockRepository) RemoveItem(_ context.Context, _ string, menuItemID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for i, item := range m.cart.Items {
		if item.MenuItemID == menuItemID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *mockRepository) DeleteCart(_ context.Context, _ string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return ErrCartNotFound
	}
	m.cart.Items = []domain.CartItem{}
	return nil
}

func (m *mockRepository) items() []domain.CartItem {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart.Items
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockCatalog struct {
	items map[string]*domain.MenuItem
}

func (m *mockCatalog) GetItem(_ context.Context, id string) (*domain.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("menu item not found")
	}
	return item, nil
}

func testCatalog() *mockCatalog {
	return &mockCatalog{items: map[string]*domain.MenuItem{
		"1": {ID: "1", Name: "Cream bun", Price: 80},
		"2": {ID: "2", Name: "Fish bun", Price: 100},
	}}
}

func TestGetCart_CacheMiss_ReadsRepo(t *testing.T) {
	cart := &domain.Cart{
		Items: []domain.CartItem{
			{MenuItemID: "1", Name: "Cream bun", Price: 80, Quantity: 2},
			{MenuItemID: "2", Name: "Fish bun", Price: 100, Quantity: 1},
		},
		SessionID: "s1",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	ret, err := sut.GetCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, ret.Items, 2)
	assert.Equal(t, 260.0, ret.Total())
	assert.Equal(t, 3, ret.ItemCount())

	require.Eventually(t, func() bool {
		return mockC.getCart() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cart was not set in cache")
}

func TestGetCart_CacheHit(t *testing.T) {
	cart := &domain.Cart{
		Items:     []domain.CartItem{{MenuItemID: "1", Price: 80, Quantity: 3}},
		SessionID: "s1",
	}
	mockRepo := &mockRepository{} // repo should NOT be needed
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testCatalog())
	ret, err := sut.GetCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, ret.ItemCount())
}

func TestGetCart_NotFound_ReturnsEmptyCart(t *testing.T) {
	mockRepo := &mockRepository{}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	ret, err := sut.GetCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", ret.SessionID)
	assert.Empty(t, ret.Items)
	assert.Zero(t, ret.Total())
}

func TestGetCart_RepoError(t *testing.T) {
	mockRepo := &mockRepository{err: fmt.Errorf("database error")}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	ret, err := sut.GetCart(context.Background(), "s1")
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, ret)
}

func TestAddItem_New_CapturesCatalogPrice(t *testing.T) {
	mockRepo := &mockRepository{}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.AddItem(context.Background(), "s1", "1")
	require.NoError(t, err)

	items := mockRepo.items()
	require.Len(t, items, 1)
	assert.Equal(t, "Cream bun", items[0].Name)
	assert.Equal(t, 80.0, items[0].Price)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddItem_Existing_IncrementsQuantity(t *testing.T) {
	mockRepo := &mockRepository{cart: &domain.Cart{
		SessionID: "s1",
		Items:     []domain.CartItem{{MenuItemID: "1", Name: "Cream bun", Price: 80, Quantity: 1}},
	}}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.AddItem(context.Background(), "s1", "1")
	require.NoError(t, err)

	items := mockRepo.items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItem_UnknownMenuItem(t *testing.T) {
	mockRepo := &mockRepository{}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.AddItem(context.Background(), "s1", "999")
	assert.ErrorIs(t, err, ErrUnknownMenuItem)
}

func TestSetQuantity_Update(t *testing.T) {
	cart := &domain.Cart{
		SessionID: "s1",
		Items:     []domain.CartItem{{MenuItemID: "1", Price: 80, Quantity: 1}},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.SetQuantity(context.Background(), "s1", "1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, mockRepo.items()[0].Quantity)

	require.Eventually(t, func() bool {
		return mockC.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestSetQuantity_ZeroRemovesItem(t *testing.T) {
	cart := &domain.Cart{
		SessionID: "s1",
		Items: []domain.CartItem{
			{MenuItemID: "1", Price: 80, Quantity: 2},
			{MenuItemID: "2", Price: 100, Quantity: 1},
		},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.SetQuantity(context.Background(), "s1", "1", 0)
	require.NoError(t, err)

	items := mockRepo.items()
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].MenuItemID)
}

func TestSetQuantity_NegativeRemovesItem(t *testing.T) {
	cart := &domain.Cart{
		SessionID: "s1",
		Items:     []domain.CartItem{{MenuItemID: "1", Price: 80, Quantity: 2}},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.SetQuantity(context.Background(), "s1", "1", -3)
	require.NoError(t, err)
	assert.Empty(t, mockRepo.items())
}

func TestRemoveItem_Success(t *testing.T) {
	cart := &domain.Cart{
		SessionID: "s1",
		Items: []domain.CartItem{
			{MenuItemID: "1", Price: 80, Quantity: 2},
			{MenuItemID: "2", Price: 100, Quantity: 1},
		},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.RemoveItem(context.Background(), "s1", "1")
	require.NoError(t, err)
	require.Len(t, mockRepo.items(), 1)

	require.Eventually(t, func() bool {
		return mockC.getCart() == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cache was not invalidated")
}

func TestClearCart_Success(t *testing.T) {
	cart := &domain.Cart{
		SessionID: "s1",
		Items:     []domain.CartItem{{MenuItemID: "1", Price: 80, Quantity: 2}},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.ClearCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, mockRepo.items())
}

func TestClearCart_MissingCartIsFine(t *testing.T) {
	mockRepo := &mockRepository{}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testCatalog())
	err := sut.ClearCart(context.Background(), "s1")
	assert.NoError(t, err)
}
