package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/outbox/payloads"
)

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

// NewEventRegistry routes transfer lifecycle and stock movements to the
// inventory topic and alert-style events to the notification topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.InventoryTopic == "" {
		return nil, fmt.Errorf("inventory topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	transferPayload := func() any { return &payloads.TransferStatusEvent{} }

	for _, desc := range []EventDescriptor{
		{EventType: enums.EventTransferCreated, AggregateType: enums.AggregateTransfer, Topic: cfg.InventoryTopic, PayloadFactory: transferPayload},
		{EventType: enums.EventTransferApproved, AggregateType: enums.AggregateTransfer, Topic: cfg.InventoryTopic, PayloadFactory: transferPayload},
		{EventType: enums.EventTransferCompleted, AggregateType: enums.AggregateTransfer, Topic: cfg.InventoryTopic, PayloadFactory: transferPayload},
		{EventType: enums.EventTransferCancelled, AggregateType: enums.AggregateTransfer, Topic: cfg.InventoryTopic, PayloadFactory: transferPayload},
		{
			EventType:      enums.EventStockChanged,
			AggregateType:  enums.AggregateStoreInventory,
			Topic:          cfg.InventoryTopic,
			PayloadFactory: func() any { return &payloads.StockChangedEvent{} },
		},
		{
			EventType:      enums.EventMainStoreChanged,
			AggregateType:  enums.AggregateStore,
			Topic:          cfg.InventoryTopic,
			PayloadFactory: func() any { return &payloads.MainStoreChangedEvent{} },
		},
		{
			EventType:      enums.EventStockLow,
			AggregateType:  enums.AggregateStoreInventory,
			Topic:          cfg.NotificationTopic,
			PayloadFactory: func() any { return &payloads.StockLowEvent{} },
		},
		{
			EventType:      enums.EventTransferStalled,
			AggregateType:  enums.AggregateTransfer,
			Topic:          cfg.NotificationTopic,
			PayloadFactory: func() any { return &payloads.TransferStalledEvent{} },
		},
	} {
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists every distinct topic the registry may publish to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
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

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
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
