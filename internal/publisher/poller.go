package publisher

import (
	"context"
	"log"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/ledger"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const receiptsTopic = "order-receipts"

// Ledger is the outbox surface the poller drains.
type Ledger interface {
	UnpublishedEvents(ctx context.Context, limit int) ([]*ledger.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains the ledger outbox into Kafka. Delivery is
// at-least-once: an event stays unpublished until the write succeeds,
// and the receipts consumer deduplicates on order id. Kafka writes go
// through a circuit breaker so a dead broker does not hammer every tick.
type OutboxPoller struct {
	tick    time.Duration
	timeout time.Duration
	repo    Ledger
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[any]
}

func NewOutboxPoller(repo Ledger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  receiptsTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "kafka-publish",
		Timeout: 10 * time.Second,
	})
	return &OutboxPoller{
		tick:    time.Second,
		timeout: 5 * time.Second,
		repo:    repo,
		writer:  w,
		breaker: cb,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) publishPending(ctx context.Context) {
	events, err := p.repo.UnpublishedEvents(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		errPublish := p.publish(ctx, event)
		if errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		errMark := p.repo.MarkEventPublished(ctx, event.ID)
		if errMark != nil {
			log.Printf("failed to mark event as published id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *ledger.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id for ordering
		Value: event.Payload,             // already JSON from the outbox
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.writer.WriteMessages(writeCtx, msg)
	})
	return err
}
