package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StopUsage is the number of on-demand requests recorded for a stop.
type StopUsage struct {
	Stop     string    `json:"stop"`
	Requests int64     `json:"requests"`
	LastSeen time.Time `json:"last_seen,omitzero"`
}

// IncrementStopUsage counts one on-demand request for stopID
func (s *Store) IncrementStopUsage(ctx context.Context, stopID string, at time.Time) error {
	stop := normalizeStop(stopID)

	pipe := s.client.Pipeline()
	pipe.ZIncrBy(ctx, StopUsageKey(), 1, stop)
	pipe.Set(ctx, StopSeenKey(stop), at.UTC().Format(time.RFC3339), DefaultStopSeenTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment usage for %s: %w", stop, err)
	}
	return nil
}

// GetStopUsage returns the limit most requested stops, busiest first.
// A limit <= 0 returns every stop.
func (s *Store) GetStopUsage(ctx context.Context, limit int) ([]StopUsage, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	scores, err := s.client.ZRevRangeWithScores(ctx, StopUsageKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get stop usage: %w", err)
	}

	stats := make([]StopUsage, 0, len(scores))
	for _, z := range scores {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		stats = append(stats, StopUsage{Stop: name, Requests: int64(z.Score)})
	}
	if len(stats) == 0 {
		return stats, nil
	}

	// last-seen timestamps in a single round trip
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(stats))
	for i, st := range stats {
		cmds[i] = pipe.Get(ctx, StopSeenKey(st.Stop))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get stop timestamps: %w", err)
	}
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if err != nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			stats[i].LastSeen = ts
		}
	}

	return stats, nil
}
