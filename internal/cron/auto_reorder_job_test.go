package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

type fakeReorderService struct {
	result reorder.BatchResult
	err    error
	sweeps int
	drains int
}

func (f *fakeReorderService) ProcessAutoReorder(context.Context) (reorder.BatchResult, error) {
	f.sweeps++
	if f.err != nil {
		return reorder.BatchResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeReorderService) ProcessPending(context.Context) (reorder.BatchResult, error) {
	f.drains++
	if f.err != nil {
		return reorder.BatchResult{}, f.err
	}
	return f.result, nil
}

func TestAutoReorderJobRunsSweep(t *testing.T) {
	svc := &fakeReorderService{result: reorder.BatchResult{Processed: 3, Succeeded: 2, Failed: 1}}
	job, err := NewAutoReorderJob(AutoReorderJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Service: svc,
	})
	if err != nil {
		t.Fatalf("NewAutoReorderJob: %v", err)
	}
	if job.Name() != "auto-reorder-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.sweeps != 1 {
		t.Fatalf("expected one sweep, got %d", svc.sweeps)
	}
}

func TestAutoReorderJobPropagatesError(t *testing.T) {
	svc := &fakeReorderService{err: errors.New("db down")}
	job, err := NewAutoReorderJob(AutoReorderJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Service: svc,
	})
	if err != nil {
		t.Fatalf("NewAutoReorderJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestProcessPendingJobRunsDrain(t *testing.T) {
	svc := &fakeReorderService{result: reorder.BatchResult{Processed: 1, Succeeded: 1}}
	job, err := NewProcessPendingJob(ProcessPendingJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Service: svc,
	})
	if err != nil {
		t.Fatalf("NewProcessPendingJob: %v", err)
	}
	if job.Name() != "process-pending-triggers" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.drains != 1 {
		t.Fatalf("expected one drain, got %d", svc.drains)
	}
}
