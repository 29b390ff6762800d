package adapter

import (
	"context"

	"jobpilot/internal/domain/model"
)

// Notifier delivers run-terminal notifications to the user (Telegram in the
// default wiring). Failures are logged by callers, never fatal to a run.
type Notifier interface {
	RunCompleted(ctx context.Context, run *model.PipelineRun) error
	RunFailed(ctx context.Context, run *model.PipelineRun, errMsg string) error
}
