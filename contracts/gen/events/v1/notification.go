package v1

// Notification is the fire-and-forget payload handed to a notification sink.
// Delivery and retry belong to the sink.
type Notification struct {
	EventID      string   `json:"event_id"`
	RecipientIDs []string `json:"recipient_ids"`
	Kind         string   `json:"kind"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	DeepLink     string   `json:"deep_link"`
	Priority     string   `json:"priority"`
	SourceEvent  string   `json:"source_event_id"`
}

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)
