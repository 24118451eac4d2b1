// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to a logger instead of delivering them.
// The body is logged because it carries the OTP needed to finish a flow locally.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a [LogNotifier].
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send implements [Notifier].
func (notifier *LogNotifier) Send(ctx context.Context, message Message) error {
	notifier.logger.InfoContext(ctx, "notification_logged",
		slog.String("kind", string(message.Kind)),
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}
