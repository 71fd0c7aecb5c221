package scheduler

import (
	"context"
	"sync"
	"time"

	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
)

type fakeSource struct {
	mu    sync.Mutex
	addrs []string
	err   error
	calls int
}

func (f *fakeSource) ListCandidates(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.addrs, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeChecker accepts every endpoint not listed in reject.
type fakeChecker struct {
	reject map[string]bool
}

func (f fakeChecker) Validate(ctx context.Context, addr string) bool {
	return !f.reject[addr]
}

type fakeStore struct {
	mu      sync.Mutex
	snap    redisstore.ProxySnapshot
	err     error
	saves   int
	deletes int
}

func (f *fakeStore) SaveProxies(ctx context.Context, endpoints []string, savedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.err != nil {
		return f.err
	}
	f.snap = redisstore.ProxySnapshot{Endpoints: endpoints, SavedAt: savedAt}
	return nil
}

func (f *fakeStore) GetProxies(ctx context.Context) (redisstore.ProxySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeStore) DeleteProxies(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.err != nil {
		return f.err
	}
	f.snap = redisstore.ProxySnapshot{}
	return nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
