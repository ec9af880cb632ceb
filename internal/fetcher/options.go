package fetcher

import (
	"log/slog"
	"time"
)

// Default settings.
const (
	// DefaultHTTPTimeout is the per-fetch deadline of the raw fetcher.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultBrowserTimeout is the per-fetch deadline of the browser fetcher.
	DefaultBrowserTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps a response body or rendered document.
	DefaultMaxBodyBytes int64 = 10 * 1024 * 1024

	// DefaultViewportWidth and DefaultViewportHeight size the browser window.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// options holds settings for both fetchers. Browser-only settings are
// ignored by the HTTP fetcher.
type options struct {
	timeout      time.Duration
	maxBodyBytes int64
	logger       *slog.Logger

	settle    time.Duration
	width     int
	height    int
	execPath  string
	proxy     string
	userAgent string
	headers   map[string]string
	cookie    string
}

// Option configures a fetcher.
type Option func(*options)

// WithTimeout sets the per-fetch deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxBodyBytes caps the size of a body. Larger bodies fail with ErrMalformedResponse.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBodyBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSettle adds a quiet period after the network-idle signal.
func WithSettle(d time.Duration) Option {
	return func(o *options) {
		o.settle = d
	}
}

// WithViewport sets the browser viewport in CSS pixels.
func WithViewport(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithExecPath sets the Chrome binary. Empty means search the usual locations.
func WithExecPath(path string) Option {
	return func(o *options) {
		o.execPath = path
	}
}

// WithProxy routes browser traffic through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxy = address
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithHeaders adds extra headers to browser requests.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithCookie sends a raw cookie string with browser requests.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

func newOptions(defaultTimeout time.Duration, opts []Option) options {
	o := options{
		timeout:      defaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		width:        DefaultViewportWidth,
		height:       DefaultViewportHeight,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	if o.maxBodyBytes <= 0 {
		o.maxBodyBytes = DefaultMaxBodyBytes
	}
	if o.width <= 0 || o.height <= 0 {
		o.width, o.height = DefaultViewportWidth, DefaultViewportHeight
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
