package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/layer-3/profileproof/core"
	"github.com/layer-3/profileproof/metrics"
)

const (
	// DefaultProfileURL looks up forum members by username
	DefaultProfileURL = "http://forums.somethingawful.com/member.php?action=getinfo&username="

	DefaultTimeout       = 10 * time.Second
	DefaultMaxAttempts   = 3
	DefaultMaxBodyBytes  = 4 << 20
	DefaultRetryInterval = 200 * time.Millisecond
	DefaultUserAgent     = "profileproof/1.0"
)

// SessionCookies are the forum session credentials needed to view profiles
type SessionCookies struct {
	SessionID   string
	SessionHash string
	BBUserID    string
	BBPassword  string
}

func (c SessionCookies) httpCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "sessionid", Value: c.SessionID},
		{Name: "sessionhash", Value: c.SessionHash},
		{Name: "bbuserid", Value: c.BBUserID},
		{Name: "bbpassword", Value: c.BBPassword},
	}
}

// Config configures an HTTPFetcher. Zero values fall back to the defaults above.
type Config struct {
	ProfileURL    string
	Cookies       SessionCookies
	Timeout       time.Duration // per attempt
	MaxAttempts   uint
	MaxBodyBytes  int64
	RetryInterval time.Duration
	RatePerSecond float64 // <= 0 disables pacing
	Burst         int
	UserAgent     string
}

// StatusError is returned when the platform answers with a non-2xx status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// HTTPFetcher fetches profiles from the external platform over HTTP
type HTTPFetcher struct {
	client        *http.Client
	profileURL    string
	cookies       []*http.Cookie
	userAgent     string
	maxAttempts   uint
	maxBodyBytes  int64
	retryInterval time.Duration
	deadline      time.Duration
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewHTTPFetcher creates a new HTTP profile fetcher
func NewHTTPFetcher(cfg Config, logger *zap.Logger) *HTTPFetcher {
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = DefaultProfileURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPFetcher{
		client:        &http.Client{Timeout: cfg.Timeout},
		profileURL:    cfg.ProfileURL,
		cookies:       cfg.Cookies.httpCookies(),
		userAgent:     cfg.UserAgent,
		maxAttempts:   cfg.MaxAttempts,
		maxBodyBytes:  cfg.MaxBodyBytes,
		retryInterval: cfg.RetryInterval,
		// Every attempt may time out, plus room for the waits in between
		deadline: time.Duration(cfg.MaxAttempts)*(cfg.Timeout+4*cfg.RetryInterval) + time.Second,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.Named("fetcher"),
	}
}

// ProfileURL returns the profile address for identity
func (f *HTTPFetcher) ProfileURL(identity string) string {
	return f.profileURL + url.QueryEscape(identity)
}

// Platform returns the profile URL base, used to label proofs
func (f *HTTPFetcher) Platform() string {
	return f.profileURL
}

// Fetch returns the raw profile page of identity. Every call issues its own
// request; pages are never cached or shared between callers.
func (f *HTTPFetcher) Fetch(ctx context.Context, identity string) (string, error) {
	return f.fetch(ctx, identity)
}

func (f *HTTPFetcher) fetch(ctx context.Context, identity string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	profileURL := f.ProfileURL(identity)
	start := time.Now()
	attempts := 0

	operation := func() (string, error) {
		attempts++
		content, err := f.fetchOnce(ctx, profileURL)
		if err != nil {
			metrics.ProfileFetchAttempts.WithLabelValues(metrics.ResultError).Inc()
			f.logger.Debug("profile fetch attempt failed",
				zap.String("identity", identity),
				zap.Int("attempt", attempts),
				zap.Error(err))
			return "", err
		}
		metrics.ProfileFetchAttempts.WithLabelValues(metrics.ResultOK).Inc()
		return content, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxInterval = 4 * f.retryInterval

	content, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(f.maxAttempts),
		backoff.WithMaxElapsedTime(f.deadline),
	)
	if err != nil {
		metrics.ProfileFetchDuration.WithLabelValues(metrics.ResultError).Observe(time.Since(start).Seconds())
		f.logger.Warn("profile fetch failed",
			zap.String("identity", identity),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
	}

	metrics.ProfileFetchDuration.WithLabelValues(metrics.ResultOK).Observe(time.Since(start).Seconds())
	return content, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, profileURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", backoff.Permanent(fmt.Errorf("rate limit wait failed: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	// Profiles are only visible to logged-in members
	for _, c := range f.cookies {
		req.AddCookie(c)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if retryableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	// A truncated page could hide the token
	if int64(len(body)) > f.maxBodyBytes {
		return "", backoff.Permanent(fmt.Errorf("body exceeds %d bytes", f.maxBodyBytes))
	}

	return string(body), nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
