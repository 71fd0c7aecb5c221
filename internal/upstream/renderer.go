package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
	"github.com/MrSnakeDoc/stopwatch/internal/utils"
)

// maxPageSize caps how much of a board page is read.
const maxPageSize = 2 << 20

// Renderer fetches the board page for pageURL through the proxy at addr,
// renders it and extracts the departure rows.
//
// Network-level failures must wrap domain.ErrTransport so the fetcher
// retries them with another proxy. Anything else is a fetch failure.
type Renderer interface {
	RenderAndParse(ctx context.Context, pageURL, addr string, timeout time.Duration) ([]domain.DepartureRow, error)
}

// HTTPRenderer downloads the page with a plain GET and parses the static markup.
// Boards filled in by scripts fail with ErrScriptedBoard; those need ChromeRenderer.
type HTTPRenderer struct{}

// NewHTTPRenderer returns a renderer that does not execute scripts.
func NewHTTPRenderer() *HTTPRenderer {
	return &HTTPRenderer{}
}

func (HTTPRenderer) RenderAndParse(ctx context.Context, pageURL, addr string, timeout time.Duration) ([]domain.DepartureRow, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := proxy.NewClient(addr, timeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer utils.Close(resp.Body)

	switch {
	case resp.StatusCode == http.StatusProxyAuthRequired:
		return nil, fmt.Errorf("%w: proxy %s refused: %s", domain.ErrTransport, addr, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("upstream answered %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading page: %w", domain.ErrTransport, err)
	}

	return ParseStaticDepartures(bytes.NewReader(body))
}
