package tailscale

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	url, err := parseStatus([]byte(`{"Self": {"DNSName": "box.tail1234.ts.net."}}`))
	require.NoError(t, err)
	assert.Equal(t, "https://box.tail1234.ts.net", url)

	_, err = parseStatus([]byte(`{"Self": {}}`))
	assert.ErrorIs(t, err, ErrNoDNSName)

	_, err = parseStatus([]byte(`not json`))
	assert.Error(t, err)
}

func TestListenPort(t *testing.T) {
	port, err := listenPort(":18790")
	require.NoError(t, err)
	assert.Equal(t, "18790", port)

	port, err = listenPort("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "8080", port)

	_, err = listenPort("localhost")
	assert.Error(t, err)
}

func TestEnsureInstalledMissing(t *testing.T) {
	f := &Funnel{Bin: filepath.Join(t.TempDir(), "no-such-tailscale")}
	assert.Error(t, f.EnsureInstalled())

	_, err := f.Start(context.Background())
	assert.Error(t, err)
}

// fakeTailscale writes a script that answers `status --json` and blocks on
// `funnel` until killed.
func fakeTailscale(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	path := filepath.Join(t.TempDir(), "tailscale")
	script := `#!/bin/sh
case "$1" in
status) echo '{"Self": {"DNSName": "box.tail1234.ts.net."}}' ;;
funnel) exec sleep 30 ;;
esac
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &Funnel{
		Bin:    fakeTailscale(t),
		Addr:   ":18790",
		Path:   "/api/events",
		Logger: zerolog.Nop(),
	}
	url, err := f.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://box.tail1234.ts.net/api/events", url)
}
