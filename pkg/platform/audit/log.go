package audit

import (
	"context"
	"log/slog"

	"idscore/pkg/attrs"
	"idscore/pkg/requestcontext"
)

// LogAudit writes an audit line to the structured logger and emits the event
// to publisher. Subject, reason and decision are lifted from attrList.
// Emit failures are logged and never fail the caller.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher Emitter, event AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	runID := requestcontext.RunID(ctx)

	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	if runID != "" {
		attrList = append(attrList, "run_id", runID)
	}

	args := append(attrList, "event", string(event), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}

	err := publisher.Emit(ctx, Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   extractSubject(attrList),
		Action:    string(event),
		Decision:  attrs.ExtractString(attrList, "decision"),
		Reason:    attrs.ExtractString(attrList, "reason"),
		RequestID: requestID,
		RunID:     runID,
		ActorID:   attrs.ExtractString(attrList, "actor_id"),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"version", "experiment_id", "treatment_version"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
