// Package fetch is the page loader boundary: it turns a product URL into
// a parsed htmldoc.Document or one of two typed failures that map
// directly onto the extraction result taxonomy.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/pricewatch/internal/htmldoc"
	"github.com/sells-group/pricewatch/internal/resilience"
)

// Typed fetch failures. ErrNoResponse covers transport-level failures;
// ErrInvalidResponse covers reachable servers that returned something
// unusable.
var (
	ErrNoResponse      = eris.New("fetch: no response")
	ErrInvalidResponse = eris.New("fetch: invalid response")
)

const maxBodyBytes = 2 << 20

// Options configures the Loader.
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	RequestsPerSec float64
	// Retries is the number of extra attempts after a transient failure.
	Retries int
}

// DefaultOptions returns polite defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:      "Mozilla/5.0 (compatible; pricewatch/1.0)",
		Timeout:        15 * time.Second,
		RequestsPerSec: 2,
	}
}

// Loader fetches product pages over HTTP with a global politeness rate
// limit.
type Loader struct {
	client  *http.Client
	limiter *rate.Limiter
	ua      string
	retry   resilience.RetryConfig
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = DefaultOptions().RequestsPerSec
	}
	return &Loader{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		ua:      opts.UserAgent,
		retry: resilience.RetryConfig{
			MaxAttempts: opts.Retries + 1,
		},
	}
}

// Fetch retrieves and parses one product page, retrying transient
// failures with backoff. Errors wrap ErrNoResponse or ErrInvalidResponse;
// callers map them with eris.Is.
func (l *Loader) Fetch(ctx context.Context, targetURL string) (*htmldoc.Document, error) {
	return resilience.DoVal(ctx, l.retry, func(ctx context.Context) (*htmldoc.Document, error) {
		return l.fetchOnce(ctx, targetURL)
	})
}

func (l *Loader) fetchOnce(ctx context.Context, targetURL string) (*htmldoc.Document, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(ErrNoResponse, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(ErrNoResponse, err.Error())
	}
	req.Header.Set("User-Agent", l.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(ErrNoResponse, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zap.L().Debug("fetch: non-success status",
			zap.String("url", targetURL),
			zap.Int("status", resp.StatusCode),
		)
		statusErr := eris.Wrapf(ErrInvalidResponse, "status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, eris.Wrapf(ErrInvalidResponse, "content-type %s", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(ErrInvalidResponse, err.Error())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, eris.Wrap(ErrInvalidResponse, "empty body")
	}

	doc, err := htmldoc.ParseBytes(body)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidResponse, err.Error())
	}
	return doc, nil
}
