package ai

import (
	"context"
	"time"
)

// Limiter is the window counter the throttle polls before each provider
// call. The Redis rate limiter implements it.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Compile-time check
var _ ChatClient = (*throttledChat)(nil)

type throttledChat struct {
	inner   ChatClient
	limiter Limiter
	key     string
	limit   int
	window  time.Duration
	retry   time.Duration
}

// NewThrottledChat caps provider calls per window. A denied call waits for
// the window to roll over instead of failing; a limiter outage lets the
// call through so scoring never stalls on Redis.
func NewThrottledChat(inner ChatClient, limiter Limiter, key string, limit int, window time.Duration) ChatClient {
	if limiter == nil || limit <= 0 {
		return inner
	}
	return &throttledChat{
		inner:   inner,
		limiter: limiter,
		key:     key,
		limit:   limit,
		window:  window,
		retry:   time.Second,
	}
}

func (t *throttledChat) Chat(ctx context.Context, system, user string) (string, error) {
	for {
		allowed, err := t.limiter.Allow(ctx, t.key, t.limit, t.window)
		if err != nil || allowed {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.retry):
		}
	}
	return t.inner.Chat(ctx, system, user)
}
