package enums

import "fmt"

// WebhookEventType maps to Printify webhook topics.
type WebhookEventType string

const (
	EventProductUpdated WebhookEventType = "product:updated"
	EventProductDeleted WebhookEventType = "product:deleted"
	EventOrderCreated   WebhookEventType = "order:created"
	EventOrderUpdated   WebhookEventType = "order:updated"
	EventOrderCanceled  WebhookEventType = "order:canceled"
	EventShippingUpdate WebhookEventType = "order:shipment:delivered"
)

// RequiredWebhookEvents is the declared set every shop endpoint must have
// registered with the vendor.
var RequiredWebhookEvents = []WebhookEventType{
	EventProductUpdated,
	EventProductDeleted,
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderCanceled,
	EventShippingUpdate,
}

// IsValid reports whether the value is a topic this system consumes.
func (e WebhookEventType) IsValid() bool {
	for _, candidate := range RequiredWebhookEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseWebhookEventType converts raw input into WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range RequiredWebhookEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown webhook event type %q", value)
}
