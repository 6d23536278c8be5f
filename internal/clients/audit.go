package clients

import (
	"context"
	"log/slog"
)

// SlogAuditLogger writes business-level audit events to the structured log.
// Log shipping gets them into the activity store.
type SlogAuditLogger struct {
	logger *slog.Logger
}

func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	return &SlogAuditLogger{logger: logger.With("channel", "audit")}
}

func (a *SlogAuditLogger) Log(ctx context.Context, actor, action string, properties map[string]any) {
	attrs := make([]any, 0, 2+2*len(properties))
	attrs = append(attrs, "actor", actor)
	for key, value := range properties {
		attrs = append(attrs, key, value)
	}
	a.logger.InfoContext(ctx, action, attrs...)
}
