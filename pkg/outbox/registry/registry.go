package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/payloads"
)

// Topics names the destinations events are routed to. The values are Pub/Sub
// topic IDs or Kafka topics depending on the configured sink.
type Topics struct {
	Orders   string
	Payments string
}

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(topics Topics) (*EventRegistry, error) {
	if topics.Orders == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if topics.Payments == "" {
		return nil, fmt.Errorf("payments topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	settled := func() any { return &payloads.PaymentSettledEvent{} }

	for _, desc := range []EventDescriptor{
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Topic: topics.Orders, PayloadFactory: func() any { return &payloads.OrderCreatedEvent{} }},
		{EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, Topic: topics.Orders, PayloadFactory: func() any { return &payloads.OrderStatusChangedEvent{} }},
		{EventType: enums.EventDiscountActivated, AggregateType: enums.AggregateDiscountCode, Topic: topics.Orders, PayloadFactory: func() any { return &payloads.DiscountActivatedEvent{} }},
		{EventType: enums.EventPaymentInitiated, AggregateType: enums.AggregateOrder, Topic: topics.Payments, PayloadFactory: func() any { return &payloads.PaymentInitiatedEvent{} }},
		{EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, Topic: topics.Payments, PayloadFactory: settled},
		{EventType: enums.EventOrderPaymentFailed, AggregateType: enums.AggregateOrder, Topic: topics.Payments, PayloadFactory: settled},
		{EventType: enums.EventOrderRefunded, AggregateType: enums.AggregateOrder, Topic: topics.Payments, PayloadFactory: settled},
	} {
		reg.entries[desc.EventType] = desc
	}

	return reg, nil
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
