package artifact

import (
	"errors"
)

// Controller errors
var (
	// State machine errors
	ErrIllegalTransition = errors.New("illegal state transition")

	// Mode selection errors
	ErrCapabilityMissing = errors.New("required capability not available")
	ErrModeNameMissing   = errors.New("mode selection carries no mode name")

	// Controller lifecycle errors
	ErrControllerStarted    = errors.New("controller already started")
	ErrControllerNotStarted = errors.New("controller not started")
	ErrBusNil               = errors.New("event bus is nil")
	ErrManagerNil           = errors.New("mode manager is nil")
	ErrRegistryNil          = errors.New("mode registry is nil")

	// Observer errors
	ErrObserverNil = errors.New("observer is nil")
)
