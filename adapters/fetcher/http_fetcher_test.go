package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/layer-3/profileproof/core"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *HTTPFetcher {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		ProfileURL:    srv.URL + "/member.php?action=getinfo&username=",
		Cookies:       SessionCookies{SessionID: "sid", SessionHash: "shash", BBUserID: "42", BBPassword: "pw"},
		Timeout:       time.Second,
		MaxAttempts:   3,
		RetryInterval: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return NewHTTPFetcher(cfg, zap.NewNop())
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("sends session cookies and returns page", func(t *testing.T) {
		var gotQuery string
		gotCookies := map[string]string{}

		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("username")
			for _, c := range r.Cookies() {
				gotCookies[c.Name] = c.Value
			}
			_, _ = w.Write([]byte("<html>about me: abc123</html>"))
		}, nil)

		content, err := f.Fetch(context.Background(), "alice")

		require.NoError(t, err)
		assert.Contains(t, content, "abc123")
		assert.Equal(t, "alice", gotQuery)
		assert.Equal(t, map[string]string{
			"sessionid":   "sid",
			"sessionhash": "shash",
			"bbuserid":    "42",
			"bbpassword":  "pw",
		}, gotCookies)
	})

	t.Run("escapes reserved characters in identity", func(t *testing.T) {
		var gotQuery string
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("username")
			assert.Equal(t, "getinfo", r.URL.Query().Get("action"))
			_, _ = w.Write([]byte("ok"))
		}, nil)

		_, err := f.Fetch(context.Background(), "a b&action=evil")

		require.NoError(t, err)
		assert.Equal(t, "a b&action=evil", gotQuery)
		assert.True(t, strings.HasSuffix(f.ProfileURL("a b&c"), "username=a+b%26c"))
		assert.True(t, strings.HasSuffix(f.ProfileURL("alice"), "username=alice"))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var hits atomic.Int32
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}, nil)

		_, err := f.Fetch(context.Background(), "alice")

		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrFetchFailed)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var hits atomic.Int32
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("token abc123"))
		}, nil)

		content, err := f.Fetch(context.Background(), "alice")

		require.NoError(t, err)
		assert.Equal(t, "token abc123", content)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var hits atomic.Int32
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}, nil)

		_, err := f.Fetch(context.Background(), "alice")

		assert.ErrorIs(t, err, core.ErrFetchFailed)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("times out slow responses", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}, func(cfg *Config) {
			cfg.Timeout = 50 * time.Millisecond
			cfg.MaxAttempts = 1
		})

		_, err := f.Fetch(context.Background(), "alice")

		assert.ErrorIs(t, err, core.ErrFetchFailed)
	})

	t.Run("caller cancellation surfaces as fetch failure", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := f.Fetch(ctx, "alice")

		assert.ErrorIs(t, err, core.ErrFetchFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		var hits atomic.Int32
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(strings.Repeat("x", 100) + "abc123"))
		}, func(cfg *Config) {
			cfg.MaxBodyBytes = 64
		})

		content, err := f.Fetch(context.Background(), "alice")

		assert.ErrorIs(t, err, core.ErrFetchFailed)
		assert.Contains(t, err.Error(), "body exceeds 64 bytes")
		assert.Empty(t, content)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("accepts body exactly at the limit", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 58) + "abc123"))
		}, func(cfg *Config) {
			cfg.MaxBodyBytes = 64
		})

		content, err := f.Fetch(context.Background(), "alice")

		require.NoError(t, err)
		assert.Len(t, content, 64)
		assert.True(t, strings.HasSuffix(content, "abc123"))
	})

	t.Run("overlapping calls each fetch a fresh page", func(t *testing.T) {
		var (
			hits   atomic.Int32
			posted atomic.Bool
		)
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			page := "profile"
			if posted.Load() {
				page += " abc123"
			}
			hits.Add(1)
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(page))
		}, nil)

		first := make(chan string, 1)
		go func() {
			content, _ := f.Fetch(context.Background(), "alice")
			first <- content
		}()

		require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)
		posted.Store(true)

		content, err := f.Fetch(context.Background(), "alice")

		require.NoError(t, err)
		assert.Contains(t, content, "abc123")
		assert.NotContains(t, <-first, "abc123")
		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(Config{}, zap.NewNop())

	assert.Equal(t, DefaultProfileURL, f.Platform())
	assert.Equal(t, DefaultProfileURL+"alice", f.ProfileURL("alice"))
	assert.Equal(t, uint(DefaultMaxAttempts), f.maxAttempts)
	assert.Equal(t, DefaultTimeout, f.client.Timeout)
}
