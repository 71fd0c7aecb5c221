// Package scheduler runs the background loops that keep the proxy pool
// topped up and the departure cache fresh.
package scheduler

import (
	"context"
	"sync"
	"time"

	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
)

// ProxyStore persists the validated pool between restarts.
type ProxyStore interface {
	SaveProxies(ctx context.Context, endpoints []string, savedAt time.Time) error
	GetProxies(ctx context.Context) (redisstore.ProxySnapshot, error)
	DeleteProxies(ctx context.Context) error
}

// loop is the start/stop plumbing shared by the periodic tasks.
type loop struct {
	stopCh   chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func newLoop() loop {
	return loop{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// run starts body in a goroutine with a context that Stop cancels.
func (l *loop) run(ctx context.Context, body func(ctx context.Context)) {
	ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		defer close(l.done)
		defer l.cancel()
		body(ctx)
	}()
}

// stop signals the loop and waits for it to exit. Safe to call twice, and
// before run, in which case it returns immediately.
func (l *loop) stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		if l.cancel == nil {
			close(l.done)
			return
		}
		l.cancel()
	})
	<-l.done
}
