package ai

import (
	"context"
)

// Compile-time check
var _ ChatClient = (*limitedChat)(nil)

type limitedChat struct {
	inner ChatClient
	sem   chan struct{}
}

// NewLimitedChat caps in-flight provider calls. Scoring runs inside the
// pipeline loop and bulk rescore can overlap with it.
func NewLimitedChat(inner ChatClient, maxConcurrent int) ChatClient {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedChat{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedChat) Chat(ctx context.Context, system, user string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Chat(ctx, system, user)
}
