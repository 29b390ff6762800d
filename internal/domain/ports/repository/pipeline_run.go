package repository

import (
	"context"

	"jobpilot/internal/domain/model"
)

type PipelineRunRepository interface {
	// CreateRunning inserts a new run with status=running. Returns
	// domain.ErrPipelineAlreadyRunning when another run currently holds the
	// running status; the check and insert happen in one transaction.
	CreateRunning(ctx context.Context) (*model.PipelineRun, error)

	// Finish records the terminal status, counts and optional error message
	// for the run, stamping completed_at.
	Finish(ctx context.Context, run *model.PipelineRun) error

	FindRunning(ctx context.Context) (*model.PipelineRun, error)
	FindByID(ctx context.Context, id string) (*model.PipelineRun, error)
	List(ctx context.Context, limit int) ([]*model.PipelineRun, error)
}
