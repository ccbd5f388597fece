package webhooks

import (
	"encoding/json"

	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
)

// Event is one parsed vendor webhook delivery.
type Event struct {
	Type     enums.WebhookEventType
	ShopID   string
	Resource Resource
}

// Resource identifies the vendor entity the event refers to.
type Resource struct {
	ID   string
	Data json.RawMessage
}

// wireEvent tolerates Printify sending ids as either strings or numbers.
type wireEvent struct {
	Event    string `json:"event"`
	ShopID   flexID `json:"shop_id"`
	Resource struct {
		ID   flexID          `json:"id"`
		Data json.RawMessage `json:"data"`
	} `json:"resource"`
}

type flexID string

func (f *flexID) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		*f = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// ParseEvent decodes a raw delivery body. The event type must be present; an
// unrecognized type is returned as-is so the caller can acknowledge it.
func ParseEvent(body []byte) (*Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if wire.Event == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing event type")
	}
	return &Event{
		Type:   enums.WebhookEventType(wire.Event),
		ShopID: string(wire.ShopID),
		Resource: Resource{
			ID:   string(wire.Resource.ID),
			Data: wire.Resource.Data,
		},
	}, nil
}
