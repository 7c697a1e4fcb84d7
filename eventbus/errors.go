package eventbus

import "errors"

var (
	// Bus state errors
	ErrBusNotStarted      = errors.New("event bus not started")
	ErrBusShutdownTimeout = errors.New("event bus shutdown timed out")

	// Subscription errors
	ErrHandlerNil          = errors.New("event handler cannot be nil")
	ErrSubscriptionUnknown = errors.New("subscription id not registered")
)
