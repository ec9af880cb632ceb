package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Fetch modes.
const (
	// ModeRaw fetches markup with plain HTTP requests.
	ModeRaw = "raw"

	// ModeRendered loads pages in headless Chrome and captures screenshots.
	ModeRendered = "rendered"
)

// Raw-mode link parsers.
const (
	// ParserRegex scans markup for href and src attributes with a regular expression.
	ParserRegex = "regex"

	// ParserHTML parses markup and collects href and src attributes.
	ParserHTML = "html"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitesnap"

	// DefaultMode renders pages, so a crawl produces screenshots.
	DefaultMode = ModeRendered

	// DefaultParser is the raw-mode link parser.
	DefaultParser = ParserRegex

	// DefaultRawTimeout is the per-request deadline in raw mode.
	DefaultRawTimeout = 10 * time.Second

	// DefaultRenderedTimeout is the per-page deadline in rendered mode,
	// covering navigation and waiting for network idle.
	DefaultRenderedTimeout = 30 * time.Second

	// DefaultOutputDir receives html/, screenshots/ and manifest.json.
	DefaultOutputDir = "./snapshots-baseline"

	// DefaultUserAgent identifies the crawler in raw-mode requests.
	DefaultUserAgent = "SiteCrawler/1.0"

	// DefaultViewportWidth and DefaultViewportHeight size the browser window.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultFormat is the summary format printed after a crawl.
	DefaultFormat = "text"
)

// validFormats lists the accepted summary formats.
var validFormats = []string{"text", "json", "markdown"}

// Config holds all options of one crawl run.
// It is populated from defaults, the config file and CLI flags, and passed
// through the application via dependency injection.
type Config struct {
	// StartURL is the seed URL as given on the command line.
	StartURL string

	// OutputDir receives html/, screenshots/ and manifest.json.
	OutputDir string

	// Mode is ModeRaw or ModeRendered.
	Mode string

	// Timeout is the per-page deadline. Zero selects the mode's default.
	Timeout time.Duration

	// Parser selects the raw-mode link extractor.
	Parser string

	// Pretty inserts line breaks between tags before markup is saved.
	Pretty bool

	// Delay is the minimum time between two fetches. Zero disables it.
	Delay time.Duration

	// MaxPages stops the crawl after this many fetches. Zero means no limit.
	MaxPages int

	// RespectRobots skips URLs disallowed by robots.txt.
	RespectRobots bool

	// Proxy is an optional SOCKS5 proxy address in "host:port" form.
	Proxy string

	// UserAgent is sent with every request.
	UserAgent string

	// ViewportWidth and ViewportHeight size the rendered page.
	ViewportWidth  int
	ViewportHeight int

	// Settle is extra quiet time after network idle before capture.
	Settle time.Duration

	// ChromePath overrides the browser binary. Empty searches the PATH.
	ChromePath string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Format is the summary format printed to stdout.
	Format string

	// NoHistory disables recording the run in the history database.
	NoHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches diagnostics to JSON lines.
	LogJSON bool

	// ConfigFilePath is an explicit config file. Empty searches the defaults.
	ConfigFilePath string

	// Cookie is sent with every request, from the config file.
	Cookie string

	// Headers are extra request headers, from the config file.
	Headers map[string]string

	// IgnorePatterns and FollowPatterns restrict crawled paths, from the
	// config file.
	IgnorePatterns []string
	FollowPatterns []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		Mode:           DefaultMode,
		Parser:         DefaultParser,
		UserAgent:      DefaultUserAgent,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		MaxBodySize:    DefaultMaxBodySize,
		Format:         DefaultFormat,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitesnap.
// On Linux: ~/.local/share/sitesnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitesnap.
// On Linux: ~/.config/sitesnap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// EffectiveTimeout returns Timeout, or the default for the mode when
// Timeout is zero.
func (c *Config) EffectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	if c.Mode == ModeRaw {
		return DefaultRawTimeout
	}
	return DefaultRenderedTimeout
}

// Viewport returns the viewport as WIDTHxHEIGHT.
func (c *Config) Viewport() string {
	return fmt.Sprintf("%dx%d", c.ViewportWidth, c.ViewportHeight)
}

// SetViewport parses and sets a WIDTHxHEIGHT viewport.
func (c *Config) SetViewport(s string) error {
	w, h, err := ParseViewport(s)
	if err != nil {
		return err
	}
	c.ViewportWidth = w
	c.ViewportHeight = h
	return nil
}

// ParseViewport parses "1280x720" into width and height.
func ParseViewport(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidViewport, s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidViewport, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidViewport, s)
	}
	return w, h, nil
}

// ApplySite merges a site configuration into c. Values the user set on the
// command line win: changed reports whether a flag was given explicitly.
// Headers are merged and the cookie and patterns come only from the file.
func (c *Config) ApplySite(sc SiteConfig, changed func(flag string) bool) error {
	if sc.Mode != "" && !changed("mode") {
		c.Mode = sc.Mode
	}
	if sc.Timeout != 0 && !changed("timeout") {
		c.Timeout = sc.Timeout
	}
	if sc.Viewport != "" && !changed("viewport") {
		if err := c.SetViewport(sc.Viewport); err != nil {
			return err
		}
	}
	if sc.UserAgent != "" && !changed("user-agent") {
		c.UserAgent = sc.UserAgent
	}
	if sc.Cookie != "" {
		c.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(sc.Headers))
		}
		for k, v := range sc.Headers {
			c.Headers[k] = v
		}
	}
	if len(sc.IgnorePatterns) > 0 {
		c.IgnorePatterns = sc.IgnorePatterns
	}
	if len(sc.FollowPatterns) > 0 {
		c.FollowPatterns = sc.FollowPatterns
	}
	return nil
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoTarget
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.Mode != ModeRaw && c.Mode != ModeRendered {
		return ErrInvalidMode
	}
	if c.Parser != ParserRegex && c.Parser != ParserHTML {
		return ErrInvalidParser
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return ErrInvalidFormat
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.Settle < 0 {
		return ErrInvalidSettle
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}
	return nil
}
