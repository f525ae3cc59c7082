package logging

import (
	"context"
	"log/slog"

	"reelkey/internal/services"
)

// Keys for the fields WithContext copies out of a context.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldPipeline  = "pipeline"
	FieldEpisode   = "episode"
	FieldStage     = "stage"
)

// WithContext returns logger with the run id, pipeline, episode and stage
// carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	args := make([]any, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldRunID, id))
	}
	if pipeline, ok := services.PipelineFromContext(ctx); ok {
		args = append(args, slog.String(FieldPipeline, pipeline))
	}
	if episode, ok := services.EpisodeFromContext(ctx); ok {
		args = append(args, slog.String(FieldEpisode, episode))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		args = append(args, slog.String(FieldStage, stage))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
