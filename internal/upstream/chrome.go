package upstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
)

// ChromeRenderer loads the page in headless Chrome through the proxy, waits
// for the board scripts to settle, then parses the resulting DOM.
type ChromeRenderer struct {
	settle   time.Duration
	execPath string
}

// NewChromeRenderer returns a renderer waiting settle after navigation.
// execPath may be empty to let chromedp locate the browser.
func NewChromeRenderer(settle time.Duration, execPath string) *ChromeRenderer {
	return &ChromeRenderer{settle: settle, execPath: execPath}
}

func (c *ChromeRenderer) RenderAndParse(ctx context.Context, pageURL, addr string, timeout time.Duration) ([]domain.DepartureRow, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ProxyServer(proxy.URL(addr).String()),
		chromedp.NoSandbox, // containers run the browser as root
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// navigation is bounded by timeout, the settle delay comes on top
	runCtx, cancel := context.WithTimeout(browserCtx, timeout+c.settle)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(c.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: render via %s: %w", domain.ErrTransport, addr, err)
	}

	return ParseDepartures(strings.NewReader(html))
}
