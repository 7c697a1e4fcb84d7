package compositor

import "errors"

var (
	ErrRendererNil       = errors.New("role renderer cannot be nil")
	ErrRoleRegistered    = errors.New("role already has a renderer")
	ErrTickRateInvalid   = errors.New("tick rate must be positive")
	ErrCompositorRunning = errors.New("compositor already running")
)
