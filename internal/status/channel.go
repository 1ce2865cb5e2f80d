package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoTap is returned by Claim when the mailbox holds no pending tag.
var ErrNoTap = errors.New("no tap pending")

const (
	recordID  = "ui"
	tapsTopic = "kiosk:taps"
)

// Channel is the shared one-slot mailbox between the RFID reader bridge
// and the active flow. The record itself lives in the status collection;
// Redis pub/sub carries the push notification so subscribers never poll.
// Consumption is claim-based: a flow atomically reads and clears the tag,
// so a consumed tap is never replayed into a newly mounted flow and
// concurrent claimants race with exactly one winner.
type Channel struct {
	col *mongo.Collection
	rdb *redis.Client
}

func NewChannel(db *mongo.Database, rdb *redis.Client) *Channel {
	return &Channel{
		col: db.Collection("status"),
		rdb: rdb,
	}
}

// PublishTap writes the tag into the mailbox and notifies subscribers.
// Called by the hardware bridge endpoint for every card read.
func (c *Channel) PublishTap(ctx context.Context, tagID string) error {
	filter := bson.M{"_id": recordID}
	update := bson.M{"$set": bson.M{"tag_id": tagID, "updated_at": time.Now()}}
	opts := options.Update().SetUpsert(true)

	if _, err := c.col.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to write status record: %w", err)
	}
	if err := c.rdb.Publish(ctx, tapsTopic, tagID).Err(); err != nil {
		return fmt.Errorf("failed to notify subscribers: %w", err)
	}
	return nil
}

// Claim atomically reads and clears the pending tag. Returns ErrNoTap
// when the slot is empty or another flow claimed it first.
func (c *Channel) Claim(ctx context.Context) (string, error) {
	filter := bson.M{"_id": recordID, "tag_id": bson.M{"$nin": bson.A{"", nil}}}
	update := bson.M{"$set": bson.M{"tag_id": "", "updated_at": time.Now()}}

	var rec domain.StatusRecord
	err := c.col.FindOneAndUpdate(ctx, filter, update).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNoTap
	}
	if err != nil {
		return "", fmt.Errorf("failed to claim tap: %w", err)
	}
	return rec.TagID, nil
}

// Clear resets both the tag and the message. Flows call it on entry and
// teardown so stale hardware state never leaks between screens.
func (c *Channel) Clear(ctx context.Context) error {
	filter := bson.M{"_id": recordID}
	update := bson.M{"$set": bson.M{"tag_id": "", "message": domain.MessageNone, "updated_at": time.Now()}}
	opts := options.Update().SetUpsert(true)

	if _, err := c.col.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to clear status record: %w", err)
	}
	return nil
}

// SetMessage writes the transition message ("registered"/"unregistered")
// without touching the tag slot.
func (c *Channel) SetMessage(ctx context.Context, message string) error {
	filter := bson.M{"_id": recordID}
	update := bson.M{"$set": bson.M{"message": message, "updated_at": time.Now()}}
	opts := options.Update().SetUpsert(true)

	if _, err := c.col.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set status message: %w", err)
	}
	return nil
}

// Get returns the current record. A missing document reads as an empty
// mailbox.
func (c *Channel) Get(ctx context.Context) (*domain.StatusRecord, error) {
	var rec domain.StatusRecord
	err := c.col.FindOne(ctx, bson.M{"_id": recordID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.StatusRecord{ID: recordID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status record: %w", err)
	}
	return &rec, nil
}

// Subscribe delivers a notification for every published tap until ctx is
// cancelled. Every subscriber sees every write; claiming decides who
// consumes it.
func (c *Channel) Subscribe(ctx context.Context) (<-chan string, error) {
	sub := c.rdb.Subscribe(ctx, tapsTopic)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to taps: %w", err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
