package proxy

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// NewClient returns an HTTP client that routes every request through the
// proxy at addr (host:port). The client is single-use: keep-alives are off
// so a dead proxy never lingers in a connection pool.
func NewClient(addr string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(URL(addr)),
			DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
				return (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext(ctx, network, address)
			},
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DisableKeepAlives: true,
		},
	}
}

// URL turns a host:port endpoint into a proxy URL usable by net/http and Chrome.
func URL(addr string) *url.URL {
	return &url.URL{Scheme: "http", Host: addr}
}
