package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes events to the structured log, which is the whole audit
// surface for deployments without a database.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("subsystem", "audit")}
}

func (s *SlogSink) Emit(ctx context.Context, evt Event) error {
	s.logger.InfoContext(ctx, "admission audit event",
		"eventID", evt.ID,
		"eventType", evt.Type,
		"communityID", evt.CommunityID,
		"memberID", evt.MemberID,
		"payload", evt.Payload,
	)
	return nil
}
