// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxkey"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// Recorder writes audit events to a [Repository] and the log.
type Recorder struct {
	repository Repository
	logger     *slog.Logger
	timeout    time.Duration
	now        func() time.Time
}

// NewRecorder creates a [Recorder]. A nil repository records to the log only.
func NewRecorder(repository Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		repository: repository,
		logger:     logger,
		timeout:    constants.AuditWriteTimeout,
		now:        time.Now,
	}
}

// WithClock overrides the timestamp source.
func (recorder *Recorder) WithClock(now func() time.Time) *Recorder {
	recorder.now = now
	return recorder
}

/*
Record appends an audit event. It never fails the caller: storage errors are
logged and swallowed.

Parameters:
  - ctx: context.Context (only its values are used; cancellation is ignored)
  - kind: Kind
  - userID: string (empty when the account is unknown)
  - ip: string
  - details: map[string]any (optional)
*/
func (recorder *Recorder) Record(ctx context.Context, kind Kind, userID, ip string, details map[string]any) {
	event := &Event{
		ID:        uuid.New(),
		Kind:      kind,
		Details:   details,
		IP:        ip,
		CreatedAt: recorder.now().UTC(),
	}
	if userID != "" {
		event.UserID = &userID
	}

	attrs := []slog.Attr{
		slog.String("event", string(kind)),
		slog.String("user_id", userID),
		slog.String("ip", ip),
	}
	if len(details) > 0 {
		attrs = append(attrs, slog.Any("details", details))
	}
	logger := recorder.requestLogger(ctx)
	logger.LogAttrs(ctx, slog.LevelInfo, "audit_event", attrs...)

	if recorder.repository == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recorder.timeout)
	defer cancel()

	if err := recorder.repository.Insert(writeCtx, event); err != nil {
		logger.Error("audit_write_failed",
			slog.String("event", string(kind)),
			slog.Any("error", err),
		)
	}
}

func (recorder *Recorder) requestLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger); ok {
		return logger
	}
	return recorder.logger
}
