package events

// Topic constants for domain events emitted by the ordering flow.
const (
	TopicOrderCreated      = "order.created"
	TopicOrderConfirmed    = "order.confirmed"
	TopicOrderSubmitFailed = "order.submit_failed"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderConfirmed,
		TopicOrderSubmitFailed,
	}
}
