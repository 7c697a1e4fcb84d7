package task

import "errors"

var (
	ErrWorkNil       = errors.New("task work function cannot be nil")
	ErrKindEmpty     = errors.New("task kind cannot be empty")
	ErrSpawnerClosed = errors.New("task spawner is closed")
	ErrDeadline      = errors.New("task deadline exceeded")
	ErrCancelled     = errors.New("task cancelled")
	ErrPanicked      = errors.New("task panicked")
)
