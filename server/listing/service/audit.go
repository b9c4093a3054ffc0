package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const auditExchange = "listing.events"

// EventPublisher receives audit events for persisted state transitions.
// Publishing is always fire-and-forget from the coordinator's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type AuditEvent struct {
	EventID   string    `json:"event_id"`
	Action    string    `json:"action"`
	ListingID int64     `json:"listing_id"`
	OwnerID   string    `json:"owner_id"`
	At        time.Time `json:"at"`
}

func NewAuditEvent(action string, listingID int64, ownerID string) AuditEvent {
	return AuditEvent{
		EventID:   uuid.NewString(),
		Action:    action,
		ListingID: listingID,
		OwnerID:   ownerID,
		At:        time.Now(),
	}
}

type AMQPPublisher struct {
	channel *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(auditExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPPublisher{channel: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, auditExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
}
