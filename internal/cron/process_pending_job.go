package cron

import (
	"context"
	"fmt"

	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

type pendingProcessor interface {
	ProcessPending(ctx context.Context) (reorder.BatchResult, error)
}

// ProcessPendingJobParams configure the pending-trigger drain job.
type ProcessPendingJobParams struct {
	Logger  *logger.Logger
	Service pendingProcessor
}

// NewProcessPendingJob builds the job that drains triggers left pending by
// earlier cycles, for example after a procurement outage.
func NewProcessPendingJob(params ProcessPendingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("reorder service required")
	}
	return &processPendingJob{logg: params.Logger, svc: params.Service}, nil
}

type processPendingJob struct {
	logg *logger.Logger
	svc  pendingProcessor
}

func (j *processPendingJob) Name() string { return "process-pending-triggers" }

func (j *processPendingJob) Run(ctx context.Context) error {
	result, err := j.svc.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("process pending triggers: %w", err)
	}
	if result.Processed == 0 {
		return nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	j.logg.Info(logCtx, "pending trigger drain complete")
	return nil
}
