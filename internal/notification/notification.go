package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOperationCompleted reports an operation that produced a receipt.
	KindOperationCompleted = "operation_completed"
	// KindOperationFailed reports an operation that ended without a receipt.
	KindOperationFailed = "operation_failed"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Operation   string
	Destination string
	Body        string
}

// Notifier delivers operation outcomes to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. Failures are
// logged at error level.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if message.Kind == KindOperationFailed {
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, "notification",
		slog.String("kind", message.Kind),
		slog.String("operation", message.Operation),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}
