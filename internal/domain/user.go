package domain

import "time"

// UserProfile is the account bound to one physical RFID card. The tag ID
// read from the card is the primary key; the credit balance is only ever
// decremented by a successful checkout charge.
type UserProfile struct {
	TagID           string     `json:"tag_id"`
	Name            string     `json:"name"`
	PhoneNumber     string     `json:"phone_number"`
	CreditBalance   float64    `json:"credit_balance"`
	LastTransaction *time.Time `json:"last_transaction,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
