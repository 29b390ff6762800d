package notify

import (
	"context"
	"log"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs notifications instead of sending them. Used when no
// Telegram token is configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (NoopNotifier) RunCompleted(ctx context.Context, run *model.PipelineRun) error {
	log.Printf("[noop-notify] run %s completed: %d discovered, %d processed\n",
		run.ID, run.JobsDiscovered, run.JobsProcessed)
	return nil
}

func (NoopNotifier) RunFailed(ctx context.Context, run *model.PipelineRun, errMsg string) error {
	log.Printf("[noop-notify] run %s failed: %s\n", run.ID, errMsg)
	return nil
}
