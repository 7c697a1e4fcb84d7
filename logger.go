package artifact

import "log/slog"

// Logger defines the interface for controller logging.
// Structured logging with key-value pairs keeps log output consistent and
// parseable across all packages:
//
//	logger.Info("mode started", "mode", "fortune", "epoch", 3)
//
// The variadic key-value form is compatible with slog, logrus, zap and
// similar structured logging libraries.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to the Logger interface. A nil
// argument uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{logger: l}
}

func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
