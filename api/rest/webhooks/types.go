package webhooks

import (
	"context"

	"github.com/stripe/stripe-go/v81"

	"github.com/nxtgenia/miniaturia/miniaturia/billing"
)

const (
	SignatureHeader = "Stripe-Signature"

	maxBodyBytes = int64(65536)
)

type Verifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

type EventHandler interface {
	Handle(ctx context.Context, event stripe.Event) (*billing.Result, error)
}

type Response struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}
