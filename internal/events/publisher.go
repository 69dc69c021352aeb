package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smartpay/payment-service-go/internal/payment"
	"github.com/smartpay/payment-service-go/internal/sequence"
)

// Publisher emits enveloped settlement events to the topic exchange.
// It satisfies payment.Notifier and is only invoked after the settlement
// unit of work has committed.
type Publisher struct {
	ch       *amqp.Channel
	seqRepo  sequence.Repository
	producer string
}

func NewPublisher(conn *amqp.Connection, seqRepo sequence.Repository, producer string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	if producer == "" {
		producer = "payment-service"
	}

	return &Publisher{ch: ch, seqRepo: seqRepo, producer: producer}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

type EventMeta struct {
	CorrelationID string
	CausationID   string
	PartitionKey  string
}

var _ payment.Notifier = (*Publisher)(nil)

// SettlementSucceeded publishes a PaymentSucceeded.v1 event keyed by the
// user's account, sequenced per partition so consumers can deduplicate.
func (p *Publisher) SettlementSucceeded(ctx context.Context, t *payment.Transaction, result *payment.SettlementResult) error {
	payload := PaymentSucceededPayload{
		TransactionReference: t.Reference,
		UserID:               t.UserID,
		CartID:               t.CartID,
		TotalAmount:          t.TotalAmount.StringFixed(2),
		NewBalance:           result.NewBalance.StringFixed(2),
		Timestamp:            result.Timestamp,
	}
	for _, line := range t.Lines {
		payload.Items = append(payload.Items, SettledItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}

	meta := EventMeta{
		CorrelationID: uuid.NewString(),
		PartitionKey:  t.UserID,
	}

	seq, err := p.seqRepo.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("next event sequence: %w", err)
	}

	env := newPaymentSucceededEvent(meta, seq, p.producer, payload, time.Now().UTC())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal PaymentSucceeded envelope: %w", err)
	}

	return p.publishJSON(ctx, PaymentSucceededRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
