package dto

// WebhookResponse acknowledges a gateway or fiscal callback. Duplicate is set
// when the event was already processed.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate"`
	EventType string `json:"event_type,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}
