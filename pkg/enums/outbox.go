package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregateTransfer       OutboxAggregateType = "transfer"
	AggregateStoreInventory OutboxAggregateType = "store_inventory"
	AggregateStore          OutboxAggregateType = "store"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransfer,
	AggregateStoreInventory,
	AggregateStore,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type_enum in Postgres.
type OutboxEventType string

const (
	EventTransferCreated   OutboxEventType = "transfer_created"
	EventTransferApproved  OutboxEventType = "transfer_approved"
	EventTransferCompleted OutboxEventType = "transfer_completed"
	EventTransferCancelled OutboxEventType = "transfer_cancelled"
	EventTransferStalled   OutboxEventType = "transfer_stalled"
	EventStockChanged      OutboxEventType = "stock_changed"
	EventStockLow          OutboxEventType = "stock_low"
	EventMainStoreChanged  OutboxEventType = "main_store_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransferCreated,
	EventTransferApproved,
	EventTransferCompleted,
	EventTransferCancelled,
	EventTransferStalled,
	EventStockChanged,
	EventStockLow,
	EventMainStoreChanged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
