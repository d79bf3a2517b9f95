package analysis

import (
	"context"
	"log/slog"
	"time"
)

// logStageStart logs the start of a pipeline stage
func (a *Analyzer) logStageStart(ctx context.Context, stage string) {
	a.logger.DebugContext(ctx, "stage_start",
		slog.String("stage", stage))
}

// logStageComplete logs the completion of a pipeline stage
func (a *Analyzer) logStageComplete(ctx context.Context, stage string, duration time.Duration) {
	a.logger.InfoContext(ctx, "stage_complete",
		slog.String("stage", stage),
		slog.Duration("duration", duration))
}

// logStageError logs a failed pipeline stage
func (a *Analyzer) logStageError(ctx context.Context, stage string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	a.logger.ErrorContext(ctx, "stage_error",
		slog.String("stage", stage),
		slog.String("error", errorMsg))
}
