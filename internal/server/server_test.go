package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte("<html><body><form id=\"auth-form\"></form></body></html>"), 0o644)
	require.NoError(t, err)
	return dir
}

func TestStartServesRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.Root = testRoot(t)

	srv, err := Start(cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, srv.Stop(context.Background())) }()

	resp, err := http.Get(srv.URL())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "auth-form")
}

func TestStartIsObservablyReady(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.Root = testRoot(t)

	srv, err := Start(cfg, zap.NewNop())
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	// Start returned, so a connect must succeed immediately: no fixed-sleep
	// readiness window.
	conn, err := net.DialTimeout("tcp", srv.Addr(), 250*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestStartPortConflictIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.Root = testRoot(t)

	first, err := Start(cfg, zap.NewNop())
	require.NoError(t, err)
	defer first.Stop(context.Background())

	_, portStr, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	conflict := cfg
	conflict.Port = mustAtoi(t, portStr)
	_, err = Start(conflict, zap.NewNop())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPortInUse), "want ErrPortInUse, got %v", err)
}

func TestStopIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.Root = testRoot(t)

	srv, err := Start(cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))
}

func TestStopFreesPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.Root = testRoot(t)

	srv, err := Start(cfg, zap.NewNop())
	require.NoError(t, err)
	addr := srv.Addr()
	require.NoError(t, srv.Stop(context.Background()))

	// The port is reusable immediately after Stop.
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, ln.Close())
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	var n int
	for _, r := range s {
		require.True(t, r >= '0' && r <= '9', "non-numeric port %q", s)
		n = n*10 + int(r-'0')
	}
	return n
}
