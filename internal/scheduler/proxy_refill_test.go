package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
)

func TestProxyRefiller_Refill(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	source := &fakeSource{addrs: []string{"a:1", "b:1", "c:1", "d:1", "e:1"}}
	checker := fakeChecker{reject: map[string]bool{"b:1": true}}
	store := &fakeStore{}

	pr := NewProxyRefiller(pool, source, checker, store, log, time.Hour, 3, 2, nil)

	require.NoError(t, pr.Refill(context.Background()))

	assert.Equal(t, 3, pool.Size())
	require.Equal(t, 1, store.saves, "expected one save to redis")
	assert.Len(t, store.snap.Endpoints, 3)

	status := pr.Status()
	assert.False(t, status.LastRun.IsZero(), "LastRun should be recorded")
	assert.Equal(t, 3, status.LastReport.Added)
	assert.Equal(t, 4, status.LastReport.Checked)
	assert.Empty(t, status.LastError)
}

func TestProxyRefiller_RefillNoopWhenFull(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	pool.Add("a:1", "b:1")
	source := &fakeSource{addrs: []string{"c:1"}}
	store := &fakeStore{}

	pr := NewProxyRefiller(pool, source, fakeChecker{}, store, log, time.Hour, 2, 1, nil)

	require.NoError(t, pr.Refill(context.Background()))

	assert.Equal(t, 0, source.Calls(), "no candidate listing when the pool is full")
	assert.Equal(t, 0, store.saves, "no save when nothing changed")
}

func TestProxyRefiller_RefillSourceFailure(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	source := &fakeSource{err: errors.New("list down")}
	store := &fakeStore{}

	pr := NewProxyRefiller(pool, source, fakeChecker{}, store, log, time.Hour, 2, 1, nil)

	require.Error(t, pr.Refill(context.Background()))

	assert.NotEmpty(t, pr.Status().LastError)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 0, store.deletes)
}

func TestProxyRefiller_EmptyPoolDropsSnapshot(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	source := &fakeSource{addrs: []string{"a:1", "b:1"}}
	checker := fakeChecker{reject: map[string]bool{"a:1": true, "b:1": true}}
	store := &fakeStore{snap: redisstore.ProxySnapshot{Endpoints: []string{"old:1"}, SavedAt: time.Now()}}

	pr := NewProxyRefiller(pool, source, checker, store, log, time.Hour, 2, 1, nil)

	require.NoError(t, pr.Refill(context.Background()))

	assert.Equal(t, 0, pool.Size())
	assert.Equal(t, 1, store.deletes)
	assert.Equal(t, 0, store.saves)
	assert.Empty(t, store.snap.Endpoints, "stale endpoints must not survive a restart")
}

func TestProxyRefiller_SaveFailureIsNotFatal(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	source := &fakeSource{addrs: []string{"a:1"}}
	store := &fakeStore{err: errors.New("redis down")}

	pr := NewProxyRefiller(pool, source, fakeChecker{}, store, log, time.Hour, 2, 1, nil)

	require.NoError(t, pr.Refill(context.Background()), "refill should ignore redis failures")
	assert.Equal(t, 1, pool.Size())
}

func TestProxyRefiller_NilStore(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	source := &fakeSource{addrs: []string{"a:1"}}

	pr := NewProxyRefiller(pool, source, fakeChecker{}, nil, log, time.Hour, 2, 1, nil)

	require.NoError(t, pr.Refill(context.Background()))
}

func TestProxyRefiller_StartAndManualTrigger(t *testing.T) {
	log := logger.New("error", false)
	pool := proxy.NewPool()
	// every candidate is rejected so each refill lists again
	source := &fakeSource{addrs: []string{"a:1"}}
	checker := fakeChecker{reject: map[string]bool{"a:1": true}}
	trigger := make(chan struct{}, 1)

	pr := NewProxyRefiller(pool, source, checker, nil, log, time.Hour, 2, 1, trigger)

	require.NoError(t, pr.Start(context.Background()))
	defer pr.Stop()

	require.True(t, waitFor(func() bool { return source.Calls() == 1 }), "expected an initial refill, got %d listings", source.Calls())

	trigger <- struct{}{}

	require.True(t, waitFor(func() bool { return source.Calls() == 2 }), "expected a refill after the manual trigger, got %d listings", source.Calls())
}

func TestProxyRefiller_StopIsIdempotent(t *testing.T) {
	log := logger.New("error", false)
	pr := NewProxyRefiller(proxy.NewPool(), &fakeSource{}, fakeChecker{}, nil, log, time.Hour, 2, 1, nil)

	// stopping a refiller that never started must not block
	pr.Stop()
	pr.Stop()
}
