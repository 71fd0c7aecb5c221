package proxy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
)

// CandidateSource lists proxy endpoints (host:port) that have not been validated yet.
type CandidateSource interface {
	ListCandidates(ctx context.Context) ([]string, error)
}

// Checker validates a single candidate endpoint.
type Checker interface {
	Validate(ctx context.Context, addr string) bool
}

// Pool is the set of currently validated proxy endpoints.
//
// Every operation holds the mutex only for bookkeeping; validation and
// fetches always run outside of it. The pool never evicts an endpoint that
// failed during live use, and TakeOne keeps the last endpoint in place so
// callers always have a fallback until the next refill.
type Pool struct {
	mu        sync.Mutex
	endpoints map[string]struct{}
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{endpoints: make(map[string]struct{})}
}

// Size returns the number of endpoints in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.endpoints)
}

// Snapshot returns the pooled endpoints, sorted.
func (p *Pool) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.endpoints))
	for addr := range p.endpoints {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Add inserts endpoints and returns how many were new.
func (p *Pool) Add(addrs ...string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, addr := range addrs {
		if _, ok := p.endpoints[addr]; ok || addr == "" {
			continue
		}
		p.endpoints[addr] = struct{}{}
		added++
	}
	return added
}

// TakeOne hands out one endpoint, with no ordering guarantee.
// The endpoint is removed unless it is the last one, which stays pooled.
func (p *Pool) TakeOne() (string, error) {
	addr, _, err := p.Take()
	return addr, err
}

// Take is TakeOne that also reports whether the endpoint was the last
// survivor, i.e. it was handed out without being removed.
func (p *Pool) Take() (addr string, last bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return "", false, domain.ErrPoolEmpty
	}

	// map iteration order is unspecified, which is all the randomness we need
	for a := range p.endpoints {
		addr = a
		break
	}

	if len(p.endpoints) == 1 {
		return addr, true, nil
	}
	delete(p.endpoints, addr)
	return addr, false, nil
}

// RefillReport summarizes one RefillIfLow call.
type RefillReport struct {
	Before     int
	Cleared    bool // the lone survivor was dropped before refilling
	Candidates int
	Checked    int
	Added      int
	After      int
}

// RefillIfLow tops the pool up to target with candidates that pass checker.
//
// Nothing happens when the pool already holds target endpoints. A pool with
// exactly one endpoint is cleared first so a single stale survivor is not
// relied on forever. Validation stops as soon as the pool reaches target;
// the remaining candidates of the batch are skipped. A failing source
// counts as "no candidates this round" and its error is returned.
func (p *Pool) RefillIfLow(ctx context.Context, target int, source CandidateSource, checker Checker) (RefillReport, error) {
	report := RefillReport{}

	p.mu.Lock()
	report.Before = len(p.endpoints)
	if report.Before >= target {
		p.mu.Unlock()
		report.After = report.Before
		return report, nil
	}
	if report.Before == 1 {
		p.endpoints = make(map[string]struct{})
		report.Cleared = true
	}
	p.mu.Unlock()

	candidates, err := source.ListCandidates(ctx)
	if err != nil {
		report.After = p.Size()
		return report, fmt.Errorf("failed to list proxy candidates: %w", err)
	}
	report.Candidates = len(candidates)

	for _, addr := range candidates {
		if ctx.Err() != nil {
			break
		}
		if p.full(target) {
			break
		}
		if p.contains(addr) {
			continue
		}

		report.Checked++
		if !checker.Validate(ctx, addr) {
			continue
		}
		report.Added += p.Add(addr)
	}

	report.After = p.Size()
	return report, ctx.Err()
}

func (p *Pool) full(target int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.endpoints) >= target
}

func (p *Pool) contains(addr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.endpoints[addr]
	return ok
}
