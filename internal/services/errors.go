package services

import (
	"errors"
	"fmt"
)

// Errors surfaced by the order service, mapped onto HTTP statuses by the
// handler layer.
var (
	// ErrInvalidSignature means the webhook signature did not match the
	// payload; the request must not be trusted.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrWebhookSecretMissing means webhook processing is not configured.
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	// ErrGatewayExhausted means every order-creation attempt hit the
	// gateway's duplicate-ID conflict.
	ErrGatewayExhausted = errors.New("exhausted gateway order creation attempts")
	// ErrMalformedWebhook means the webhook body could not be parsed.
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)

// ValidationError reports the first missing or invalid checkout field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}
