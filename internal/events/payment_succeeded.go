package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentSucceeded = "PaymentSucceeded"

	paymentSucceededSchema = "smartpay.events.PaymentSucceeded.v1"
)

// EventEnvelope is the shared envelope for v1 event contracts.
type EventEnvelope struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      int64     `json:"sequence,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
}

// PaymentSucceededPayload carries the committed settlement facts.
// Amounts are decimal strings so consumers never round them through floats.
type PaymentSucceededPayload struct {
	TransactionReference string        `json:"transactionReference"`
	UserID               string        `json:"userId"`
	CartID               string        `json:"cartId"`
	TotalAmount          string        `json:"totalAmount"`
	NewBalance           string        `json:"newBalance"`
	Items                []SettledItem `json:"items"`
	Timestamp            time.Time     `json:"timestamp"`
}

type SettledItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type PaymentSucceededEvent struct {
	EventEnvelope
	Payload PaymentSucceededPayload `json:"payload"`
}

func newPaymentSucceededEvent(meta EventMeta, seq int64, producer string, payload PaymentSucceededPayload, occurredAt time.Time) PaymentSucceededEvent {
	return PaymentSucceededEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypePaymentSucceeded,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        paymentSucceededSchema,
		},
		Payload: payload,
	}
}
