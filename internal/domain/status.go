package domain

import "time"

// Status messages written back by the flows.
const (
	MessageNone         = ""
	MessageRegistered   = "registered"
	MessageUnregistered = "unregistered"
)

// StatusRecord is the single shared mailbox between the RFID reader
// bridge and whichever flow is active. Last write wins, no history.
type StatusRecord struct {
	ID        string    `bson:"_id" json:"-"`
	TagID     string    `bson:"tag_id" json:"tag_id"`
	Message   string    `bson:"message" json:"message"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
