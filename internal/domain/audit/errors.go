package audit

import "errors"

var (
	ErrOutboxEventNotFound = errors.New("outbox event not found")
	ErrEmptyPayload        = errors.New("outbox payload is required")
)
