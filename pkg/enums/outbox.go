package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregatePromotion OutboxAggregateType = "promotion"
	AggregateStore     OutboxAggregateType = "store"
	AggregateBook      OutboxAggregateType = "book"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePromotion,
	AggregateStore,
	AggregateBook,
}

// IsValid reports whether the value is a known aggregate type.
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

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order.placed"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventPromotionApproved  OutboxEventType = "promotion.approved"
	EventPromotionRejected  OutboxEventType = "promotion.rejected"
	EventPromotionExpired   OutboxEventType = "promotion.expired"
	EventStoreDeleted       OutboxEventType = "store.deleted"
	EventBookStockDepleted  OutboxEventType = "book.stock_depleted"
)

var validEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventPromotionApproved,
	EventPromotionRejected,
	EventPromotionExpired,
	EventStoreDeleted,
	EventBookStockDepleted,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
