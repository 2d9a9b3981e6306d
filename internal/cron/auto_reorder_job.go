package cron

import (
	"context"
	"fmt"

	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

type autoReorderRunner interface {
	ProcessAutoReorder(ctx context.Context) (reorder.BatchResult, error)
}

// AutoReorderJobParams configure the scheduled reorder sweep.
type AutoReorderJobParams struct {
	Logger  *logger.Logger
	Service autoReorderRunner
}

// NewAutoReorderJob builds the job that walks every enabled reorder config,
// enqueues triggers for SKUs at or below their minimum, and drains the queue.
func NewAutoReorderJob(params AutoReorderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("reorder service required")
	}
	return &autoReorderJob{logg: params.Logger, svc: params.Service}, nil
}

type autoReorderJob struct {
	logg *logger.Logger
	svc  autoReorderRunner
}

func (j *autoReorderJob) Name() string { return "auto-reorder-sweep" }

func (j *autoReorderJob) Run(ctx context.Context) error {
	result, err := j.svc.ProcessAutoReorder(ctx)
	if err != nil {
		return fmt.Errorf("auto reorder sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	})
	j.logg.Info(logCtx, "auto reorder sweep complete")
	return nil
}
