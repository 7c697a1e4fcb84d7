package diag

import (
	"errors"
)

// Diagnostics server errors
var (
	ErrServerStarted    = errors.New("diagnostics server already started")
	ErrServerNotStarted = errors.New("diagnostics server not started")
	ErrAddrEmpty        = errors.New("diagnostics server address is empty")
)
