package artifact

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// controller events. Observers register with Subjects to receive
// notifications when events occur. Events use the CloudEvents specification
// for standardization, so external monitoring can consume them unchanged.
type Observer interface {
	// OnEvent is called when an event occurs that the observer is
	// interested in. Observers should handle events quickly to avoid
	// blocking other observers.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer, used for
	// registration tracking and debugging.
	ObserverID() string
}

// Subject defines the interface for objects that can be observed. Subjects
// maintain a list of observers and notify them when events occur.
type Subject interface {
	// RegisterObserver adds an observer to receive notifications.
	// Observers can optionally filter events by type; an empty eventTypes
	// means all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all registered observers without
	// blocking the caller; observer errors are handled gracefully.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about currently registered
	// observers, for debugging and monitoring.
	GetObservers() []ObserverInfo
}

// ObserverInfo provides information about a registered observer.
type ObserverInfo struct {
	// ID is the unique identifier of the observer
	ID string `json:"id"`

	// EventTypes are the event types this observer is subscribed to.
	// Empty slice means all events.
	EventTypes []string `json:"eventTypes"`

	// RegisteredAt indicates when the observer was registered
	RegisteredAt time.Time `json:"registeredAt"`
}

// EventType constants for controller CloudEvents. Following the CloudEvents
// specification, these use reverse domain notation.
const (
	// State machine events
	EventTypeStateChanged = "com.artifact.state.changed"
	EventTypeStateTimeout = "com.artifact.state.timeout"

	// Mode lifecycle events
	EventTypeModeStarted  = "com.artifact.mode.started"
	EventTypeModeFinished = "com.artifact.mode.finished"
	EventTypeModeRejected = "com.artifact.mode.rejected"
	EventTypeModeFaulted  = "com.artifact.mode.faulted"

	// Background task events
	EventTypeTaskDropped = "com.artifact.task.dropped"

	// Controller lifecycle events
	EventTypeControllerStarted = "com.artifact.controller.started"
	EventTypeControllerStopped = "com.artifact.controller.stopped"
)

// FunctionalObserver provides a simple way to create observers using
// functions, without defining full structs.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided
// function to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
