package billing

import "errors"

var (
	// ErrSecretNotConfigured means the signing secret is missing. Every webhook
	// fails until the deployment is fixed, so callers must log it loudly.
	ErrSecretNotConfigured = errors.New("billing webhook signing secret is not configured")

	// ErrInvalidSignature covers a missing, malformed or mismatching signature.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload means the body is not a JSON object or lacks meta.event_name.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrAccountNotFound is returned by a gateway when no account matches the id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrPersistence wraps gateway failures that should make the provider retry.
	ErrPersistence = errors.New("account update failed")
)
