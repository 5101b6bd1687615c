package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// creates a verifier; an empty secret makes every Verify call fail
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// reports whether a webhook secret is configured
func (v *Verifier) Configured() bool {
	return v.secret != ""
}

// checks the signature and decodes the event; there is no unsigned fallback
func (v *Verifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, ErrNoSecret
	}

	if signature == "" {
		return stripe.Event{}, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	return event, nil
}
