//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lockcheck/internal/browser"
)

func TestSession_ConsoleCapture_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body><script>
			console.log('boot message');
			console.warn('warn message');
			setTimeout(() => console.error('late message'), 100);
		</script></body></html>`)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := browser.Open(ctx, browser.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, sess.Close()) }()

	require.NoError(t, sess.Page().Context(ctx).Navigate(ts.URL))
	require.NoError(t, sess.Page().Context(ctx).WaitLoad())
	time.Sleep(500 * time.Millisecond)

	events := sess.ConsoleEvents()
	require.GreaterOrEqual(t, len(events), 3)

	var texts []string
	for _, ev := range events {
		texts = append(texts, ev.Text)
	}
	// The listener was attached before navigation, so the boot-time message
	// is present, and emission order is preserved.
	require.Contains(t, texts, "boot message")
	require.Contains(t, texts, "warn message")
	require.Contains(t, texts, "late message")
	require.Less(t, index(texts, "boot message"), index(texts, "late message"))
}

func TestSession_CloseIsIdempotent_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := browser.Open(ctx, browser.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
}

func index(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}
