package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where a durable store is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.ByteString("session_id", evt.SessionID[:]),
			zap.String("stage", string(evt.Stage)),
			zap.String("grid_id", evt.GridID),
			zap.Int("completed_grids", evt.Snapshot.CompletedGrids),
			zap.Int("total_grids", evt.Snapshot.TotalGrids),
			zap.Int("found", evt.Snapshot.Found),
			zap.Int("imported", evt.Snapshot.Imported),
			zap.Float64("percent_complete", evt.Snapshot.PercentComplete),
			zap.Duration("eta", evt.Snapshot.ETA),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
