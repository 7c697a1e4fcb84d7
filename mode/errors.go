package mode

import "errors"

var (
	// Registry errors
	ErrModeUnknown       = errors.New("mode not registered")
	ErrModeAlreadyExists = errors.New("mode name already registered")
	ErrFactoryNil        = errors.New("mode factory cannot be nil")
	ErrNameEmpty         = errors.New("mode name cannot be empty")

	// Lifecycle errors
	ErrInstanceActive = errors.New("a mode instance is already active")
	ErrNoInstance     = errors.New("no mode instance is active")
	ErrIllegalPhase   = errors.New("illegal mode phase transition")
	ErrModeFault      = errors.New("mode callback fault")
)
