package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderItem struct {
	MenuItemID string  `bson:"menu_item_id" json:"menu_item_id"`
	Name       string  `bson:"name" json:"name"`
	Quantity   int     `bson:"quantity" json:"quantity"`
	Price      float64 `bson:"price" json:"price"`
}

// Order is the append-only record written by a successful checkout.
// It is never updated after creation.
type Order struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"user_id"`
	OrderDate   time.Time   `json:"order_date"`
	TotalAmount float64     `json:"total_amount"`
	ItemCount   int         `json:"item_count"`
	Items       []OrderItem `json:"items"`
}

// NewOrder snapshots the cart into an order for the given card. Prices
// and names come from the cart, captured when each item was added.
func NewOrder(tagID string, cart *Cart) *Order {
	items := make([]OrderItem, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}
	return &Order{
		ID:          uuid.New(),
		UserID:      tagID,
		OrderDate:   time.Now(),
		TotalAmount: cart.Total(),
		ItemCount:   cart.ItemCount(),
		Items:       items,
	}
}

// Receipt is the read-side copy of an order, materialized from the
// order-receipts topic. The order ID doubles as the document key so
// redelivered events stay idempotent.
type Receipt struct {
	OrderID     string      `bson:"_id" json:"order_id"`
	UserID      string      `bson:"user_id" json:"user_id"`
	TotalAmount float64     `bson:"total_amount" json:"total_amount"`
	ItemCount   int         `bson:"item_count" json:"item_count"`
	Items       []OrderItem `bson:"items" json:"items"`
	CompletedAt time.Time   `bson:"completed_at" json:"completed_at"`
}
