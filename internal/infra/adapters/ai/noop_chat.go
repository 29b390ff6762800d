package ai

import (
	"context"
	"log"
	"time"
)

var _ ChatClient = (*NoopChat)(nil)

// NoopChat implements ChatClient for local/dev runs without an API key.
// It logs the request and returns a fixed middling verdict.
type NoopChat struct{}

func NewNoopChat() *NoopChat {
	return &NoopChat{}
}

func (NoopChat) Chat(ctx context.Context, system, user string) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
		// proceed
	case <-ctx.Done():
		return "", ctx.Err()
	}
	log.Printf("[noop-ai] chat request (%d bytes)\n", len(system)+len(user))
	return `{"score": 50, "reason": "noop scorer, configure an AI provider for real verdicts"}`, nil
}
