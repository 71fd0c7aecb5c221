package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/utils"
)

// Validator decides whether a candidate proxy can relay traffic to both a
// generic liveness target and the upstream departures host.
type Validator struct {
	targets []string
	timeout time.Duration
}

// NewValidator creates a validator probing livenessURL then upstreamURL,
// each bounded by timeout.
func NewValidator(livenessURL, upstreamURL string, timeout time.Duration) *Validator {
	return &Validator{
		targets: []string{livenessURL, upstreamURL},
		timeout: timeout,
	}
}

// Validate reports whether addr passed every probe on the first attempt.
func (v *Validator) Validate(ctx context.Context, addr string) bool {
	return v.Check(ctx, addr) == nil
}

// Check runs the probes in order and returns the first failure wrapped in
// domain.ErrValidationFailed. The response status is not inspected: any
// answer means the proxy relayed the request.
func (v *Validator) Check(ctx context.Context, addr string) error {
	client := NewClient(addr, v.timeout)
	for _, target := range v.targets {
		if err := probe(ctx, client, target, v.timeout); err != nil {
			return fmt.Errorf("%w: %s via %s: %v", domain.ErrValidationFailed, target, addr, err)
		}
	}
	return nil
}

func probe(ctx context.Context, client *http.Client, target string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer utils.DrainAndClose(resp.Body)
	return nil
}
