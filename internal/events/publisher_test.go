package events

import (
	"fmt"
	"testing"
	"time"
)

func TestPaymentSucceededEnvelopeSchema(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	meta := EventMeta{
		CorrelationID: "c0a8e2b6-3c6a-4d7e-9c8f-1f2e3d4c5b6a",
		PartitionKey:  "user-1",
	}
	payload := PaymentSucceededPayload{
		TransactionReference: "TXN20240501120000ABCDEF01",
		UserID:               "user-1",
		CartID:               "cart-1",
		TotalAmount:          "350.00",
		NewBalance:           "150.00",
		Items: []SettledItem{
			{ProductID: "prod-A", Quantity: 2, Subtotal: "200.00"},
			{ProductID: "prod-B", Quantity: 1, Subtotal: "150.00"},
		},
		Timestamp: now,
	}

	ev := newPaymentSucceededEvent(meta, 5, "payment-service", payload, now)
	if ev.EventName != EventTypePaymentSucceeded || ev.EventVersion != 1 {
		t.Fatalf("unexpected name/version: %+v", ev.EventEnvelope)
	}
	if ev.PartitionKey != meta.PartitionKey {
		t.Fatalf("partition key mismatch: %s", ev.PartitionKey)
	}
	if ev.Sequence != 5 {
		t.Fatalf("sequence mismatch: %d", ev.Sequence)
	}

	if err := validatePaymentSucceeded(ev); err != nil {
		t.Fatalf("schema validation failed: %v", err)
	}

	// mutate to ensure validation fails
	ev.EventName = "WrongName"
	if err := validatePaymentSucceeded(ev); err == nil {
		t.Fatalf("expected validation error for wrong eventName")
	}
}

func validatePaymentSucceeded(ev PaymentSucceededEvent) error {
	if ev.EventName != EventTypePaymentSucceeded {
		return errf("eventName")
	}
	if ev.EventVersion != 1 {
		return errf("eventVersion")
	}
	if ev.Schema != paymentSucceededSchema {
		return errf("schema")
	}
	if ev.Producer == "" || ev.PartitionKey == "" || ev.EventID == "" {
		return errf("envelope required")
	}
	p := ev.Payload
	if p.TransactionReference == "" || p.UserID == "" || p.CartID == "" || p.Timestamp.IsZero() {
		return errf("payload required")
	}
	if p.TotalAmount == "" || p.NewBalance == "" {
		return errf("payload amounts")
	}
	for _, it := range p.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.Subtotal == "" {
			return errf("invalid item")
		}
	}
	return nil
}

func errf(field string) error {
	return fmt.Errorf("invalid %s", field)
}
