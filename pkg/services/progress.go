package services

import (
	"context"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// ProgressReporter receives import progress events. Implementations must not
// block the pipeline for long and must not fail it.
type ProgressReporter interface {
	Report(ctx context.Context, event models.ProgressEvent)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, models.ProgressEvent) {}
