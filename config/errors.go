package config

import (
	"errors"
)

// Configuration errors
var (
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	ErrEnvInvalidValue   = errors.New("environment override has invalid value")

	// Validation errors
	ErrTickRateInvalid    = errors.New("tick rate must be positive")
	ErrTimeoutNegative    = errors.New("timeout must not be negative")
	ErrModeNameEmpty      = errors.New("mode entry has no name")
	ErrModeDuplicate      = errors.New("mode entry duplicated")
	ErrScheduleSpecEmpty  = errors.New("schedule entry has no cron spec")
	ErrScheduleEventEmpty = errors.New("schedule entry has no event kind")

	// Watcher errors
	ErrWatcherStarted = errors.New("config watcher already started")
	ErrWatchPathEmpty = errors.New("config watch path is empty")
)
