package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/segmentio/kafka-go"
)

// OrderCompletedEvent mirrors the outbox payload written by the ledger
// charge transaction.
type OrderCompletedEvent struct {
	OrderID     string             `json:"order_id"`
	UserID      string             `json:"user_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	ItemCount   int                `json:"item_count"`
	CompletedAt time.Time          `json:"completed_at"`
}

type Consumer struct {
	repo   ReceiptRepository
	reader *kafka.Reader
}

func NewConsumer(repo ReceiptRepository, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-receipts",
		GroupID:  "kiosk-receipts",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var event OrderCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}

	if err := c.store(ctx, &event); err != nil {
		log.Printf("failed to store receipt for order %s: %v", event.OrderID, err)
	}
}

func (c *Consumer) store(ctx context.Context, event *OrderCompletedEvent) error {
	if event.OrderID == "" {
		log.Printf("skipping event with empty order_id")
		return nil
	}

	receipt := &domain.Receipt{
		OrderID:     event.OrderID,
		UserID:      event.UserID,
		TotalAmount: event.TotalAmount,
		ItemCount:   event.ItemCount,
		Items:       event.Items,
		CompletedAt: event.CompletedAt,
	}

	if err := c.repo.Create(ctx, receipt); err != nil {
		if errors.Is(err, ErrDuplicateReceipt) {
			log.Printf("receipt for order %s already exists, skipping", event.OrderID)
			return nil
		}
		return err
	}

	log.Printf("receipt stored for order %s", event.OrderID)
	return nil
}
