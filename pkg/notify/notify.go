// Package notify delivers import progress events to loggers and NATS.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// LogReporter writes progress events to a zap logger. Stage completions are
// logged at Info, intermediate counts at Debug.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger.Named("progress")}
}

func (r *LogReporter) Report(ctx context.Context, e models.ProgressEvent) {
	fields := []zap.Field{
		zap.String("run_id", e.RunID.String()),
		zap.String("stage", string(e.Stage)),
		zap.Int64("processed", e.Processed),
	}
	if e.Total > 0 {
		fields = append(fields, zap.Int64("total", e.Total))
	}
	if e.Done {
		r.logger.Info("Import stage finished", fields...)
		return
	}
	r.logger.Debug("Import progress", fields...)
}

// Reporter is the subset of services.ProgressReporter this package composes.
type Reporter interface {
	Report(ctx context.Context, e models.ProgressEvent)
}

// Multi fans each event out to every reporter in order.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, e models.ProgressEvent) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, e)
		}
	}
}
