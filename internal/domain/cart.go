package domain

import "time"

// Cart holds the items one kiosk session has selected. Carts are keyed
// by the session ID minted on the first cart interaction.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	SessionID string     `bson:"session_id" json:"session_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartItem captures name and price at add-to-cart time. Checkout charges
// the captured price, not the live catalog price.
type CartItem struct {
	MenuItemID string    `bson:"menu_item_id" json:"menu_item_id"`
	Name       string    `bson:"name" json:"name"`
	Price      float64   `bson:"price" json:"price"`
	Quantity   int       `bson:"quantity" json:"quantity"`
	AddedAt    time.Time `bson:"added_at" json:"added_at"`
}

// Total is the sum of price times quantity across all items.
func (c *Cart) Total() float64 {
	var sum float64
	for _, item := range c.Items {
		sum += item.Price * float64(item.Quantity)
	}
	return sum
}

// ItemCount is the sum of quantities across all items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
