package seedfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderListCandidates(t *testing.T) {
	path := writeSeed(t, `---
proxies:
  - 10.0.0.1:3128
  - host: 10.0.0.2
    port: 8080
  - host: ""
    port: 80
`)

	got, err := NewLoader(path).ListCandidates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1:3128", "10.0.0.2:8080"}, got)
}

func TestLoaderRejectsMalformedScalar(t *testing.T) {
	path := writeSeed(t, "proxies:\n  - just-a-host\n")

	_, err := NewLoader(path).Load()
	assert.Error(t, err, "an entry without a port is malformed")
}

func TestLoaderFileNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/proxies.yaml").ListCandidates(context.Background())
	assert.Error(t, err)
}
