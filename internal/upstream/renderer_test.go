package upstream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
)

// boardProxy plays both the proxy and the upstream board.
func boardProxy(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("przystanek") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestHTTPRendererParsesBoard(t *testing.T) {
	addr := boardProxy(t, http.StatusOK, boardPage)

	rows, err := NewHTTPRenderer().RenderAndParse(context.Background(), "http://board.test/vm/?przystanek=Rondo", addr, time.Second)
	require.NoError(t, err)

	assert.Len(t, rows, 2)
	assert.Equal(t, "Centrum", rows[0].Direction)
}

func TestHTTPRendererClassifiesFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := ln.Addr().String()
	require.NoError(t, ln.Close())

	tests := []struct {
		name      string
		addr      string
		transport bool
	}{
		{name: "unreachable proxy", addr: dead, transport: true},
		{name: "proxy auth required", addr: boardProxy(t, http.StatusProxyAuthRequired, ""), transport: true},
		{name: "upstream error status", addr: boardProxy(t, http.StatusInternalServerError, ""), transport: false},
		{name: "blocked page", addr: boardProxy(t, http.StatusOK, "<h1>captcha</h1>"), transport: false},
		{name: "board filled by scripts", addr: boardProxy(t, http.StatusOK, scriptedBoardPage), transport: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPRenderer().RenderAndParse(context.Background(), "http://board.test/vm/?przystanek=Rondo", tt.addr, 500*time.Millisecond)
			require.Error(t, err)
			assert.Equal(t, tt.transport, errors.Is(err, domain.ErrTransport))
		})
	}
}

func TestHTTPRendererRejectsScriptedBoard(t *testing.T) {
	addr := boardProxy(t, http.StatusOK, scriptedBoardPage)

	rows, err := NewHTTPRenderer().RenderAndParse(context.Background(), "http://board.test/vm/?przystanek=Rondo", addr, time.Second)

	assert.ErrorIs(t, err, ErrScriptedBoard)
	assert.Nil(t, rows)
}
