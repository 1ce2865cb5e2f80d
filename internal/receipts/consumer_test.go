package receipts

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
	m        sync.Mutex
	receipts map[string]*domain.Receipt
	err      error
}

func newMockRepository() *mockRepository {
	return &mockRepository{receipts: make(map[string]*domain.Receipt)}
}

func (m *mockRepository) Create(_ context.Context, receipt *domain.Receipt) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.receipts[receipt.OrderID]; ok {
		return ErrDuplicateReceipt
	}
	m.receipts[receipt.OrderID] = receipt
	return nil
}

func (m *mockRepository) ListByUser(_ context.Context, tagID string) ([]*domain.Receipt, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Receipt
	for _, receipt := range m.receipts {
		if receipt.UserID == tagID {
			out = append(out, receipt)
		}
	}
	return out, nil
}

func (m *mockRepository) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.receipts)
}

func testOrderEvent(orderID string) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		OrderID:     orderID,
		UserID:      "TAG42",
		Items:       []domain.OrderItem{{MenuItemID: "1", Name: "Cream bun", Quantity: 2, Price: 100}},
		TotalAmount: 200,
		ItemCount:   2,
		CompletedAt: time.Now(),
	}
}

func TestStore_CreatesReceipt(t *testing.T) {
	repo := newMockRepository()
	sut := &Consumer{repo: repo}

	require.NoError(t, sut.store(context.Background(), testOrderEvent("order-1")))

	receipts, err := repo.ListByUser(context.Background(), "TAG42")
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "order-1", receipts[0].OrderID)
	assert.Equal(t, 200.0, receipts[0].TotalAmount)
	assert.Equal(t, 2, receipts[0].ItemCount)
	require.Len(t, receipts[0].Items, 1)
	assert.Equal(t, "Cream bun", receipts[0].Items[0].Name)
}

func TestStore_RedeliveredEventIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	sut := &Consumer{repo: repo}

	require.NoError(t, sut.store(context.Background(), testOrderEvent("order-1")))
	require.NoError(t, sut.store(context.Background(), testOrderEvent("order-1")))

	assert.Equal(t, 1, repo.count())
}

func TestStore_SkipsEmptyOrderID(t *testing.T) {
	repo := newMockRepository()
	sut := &Consumer{repo: repo}

	require.NoError(t, sut.store(context.Background(), testOrderEvent("")))
	assert.Zero(t, repo.count())
}

func TestStore_RepoErrorSurfaces(t *testing.T) {
	repo := newMockRepository()
	repo.err = fmt.Errorf("mongo down")
	sut := &Consumer{repo: repo}

	err := sut.store(context.Background(), testOrderEvent("order-1"))
	assert.ErrorContains(t, err, "mongo down")
}
