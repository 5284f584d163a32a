package enums

// OutboxEventType identifies the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderShipped       OutboxEventType = "order.shipped"
	EventPaymentProcessed   OutboxEventType = "payment.processed"
)

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)
