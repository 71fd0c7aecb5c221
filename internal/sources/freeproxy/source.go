package freeproxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/utils"
)

// DefaultSelector matches the rows of the free-proxy-list.net table.
const DefaultSelector = "#proxylisttable tbody tr"

// Source scrapes a public proxy listing page: an HTML table whose first two
// cells are the IP and the port.
type Source struct {
	url      string
	selector string
	client   *http.Client
	retry    func() backoff.BackOff
	logger   logger.Logger
}

// New creates a source reading listURL. Downloads are retried with
// exponential backoff for at most maxElapsed.
func New(listURL, selector string, timeout, maxElapsed time.Duration, log logger.Logger) *Source {
	if selector == "" {
		selector = DefaultSelector
	}
	return &Source{
		url:      listURL,
		selector: selector,
		client:   &http.Client{Timeout: timeout},
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.RandomizationFactor = 0.2
			b.Multiplier = 2
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = maxElapsed
			return b
		},
		logger: log.With(logger.Component("freeproxy")),
	}
}

func (s *Source) Name() string { return "freeproxy" }

// ListCandidates downloads and parses the listing.
func (s *Source) ListCandidates(ctx context.Context) ([]string, error) {
	candidates, err := backoff.RetryNotifyWithData(
		func() ([]string, error) {
			return s.fetch(ctx)
		},
		backoff.WithContext(s.retry(), ctx),
		func(err error, d time.Duration) {
			s.logger.Warn("proxy list download failed, backing off",
				logger.Duration("retry_in", d),
				logger.Error(err))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list proxies from %s: %w", s.url, err)
	}

	s.logger.Debug("proxy list downloaded", logger.Int("candidates", len(candidates)))
	return candidates, nil
}

func (s *Source) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("proxy list answered %s", resp.Status)
	}

	candidates, err := Parse(resp.Body, s.selector)
	if err != nil {
		// a page we cannot read will not get better by asking again
		return nil, backoff.Permanent(err)
	}
	return candidates, nil
}

// Parse extracts host:port pairs from the table rows matched by selector.
// Rows with an invalid IP or port are skipped; duplicates are dropped.
func Parse(r io.Reader, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy list: %w", err)
	}

	rows := doc.Find(selector)
	if rows.Length() == 0 {
		return nil, fmt.Errorf("no rows match %q", selector)
	}

	seen := make(map[string]struct{}, rows.Length())
	candidates := make([]string, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		host := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if net.ParseIP(host) == nil || !validPort(port) {
			return
		}

		addr := net.JoinHostPort(host, port)
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		candidates = append(candidates, addr)
	})

	return candidates, nil
}

func validPort(s string) bool {
	p, err := strconv.Atoi(s)
	return err == nil && p > 0 && p < 65536
}
