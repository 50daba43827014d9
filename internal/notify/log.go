package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the structured log. It is the default
// channel when no webhook is configured, and useful alongside real channels
// during development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With(slog.String("component", "notify"))}
}

// Send logs the notification at info level.
func (l *LogSender) Send(ctx context.Context, title, message string) error {
	l.logger.InfoContext(ctx, title, slog.String("detail", message))
	return nil
}

// Name returns the sender identifier.
func (l *LogSender) Name() string {
	return "log"
}
