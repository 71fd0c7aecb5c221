// Package sources combines the places proxy candidates come from.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
)

// Named is a candidate source that can identify itself in logs.
type Named interface {
	proxy.CandidateSource
	Name() string
}

// Chain queries several sources in order and merges their candidates.
// A failing source is logged and skipped; the chain only fails when every
// source failed.
type Chain struct {
	sources []Named
	logger  logger.Logger
}

// NewChain creates a chain over srcs, ignoring nil entries.
func NewChain(log logger.Logger, srcs ...Named) *Chain {
	c := &Chain{logger: log.With(logger.Component("sources"))}
	for _, s := range srcs {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// ListCandidates returns the de-duplicated union of all sources.
func (c *Chain) ListCandidates(ctx context.Context) ([]string, error) {
	if len(c.sources) == 0 {
		return nil, errors.New("no proxy sources configured")
	}

	var (
		out  []string
		errs []error
		seen = make(map[string]struct{})
	)
	for _, src := range c.sources {
		candidates, err := src.ListCandidates(ctx)
		if err != nil {
			c.logger.Warn("proxy source failed",
				logger.String("source", src.Name()),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		for _, addr := range candidates {
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}

	if len(errs) == len(c.sources) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
