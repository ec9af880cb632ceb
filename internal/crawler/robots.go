package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps the robots.txt body read per host.
const maxRobotsSize = 512 * 1024

// RobotsAgent evaluates robots.txt rules, fetching each host's file once.
// Errors fetching or parsing robots.txt allow everything.
type RobotsAgent struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration

	mu sync.Mutex
	// cache holds nil for hosts whose robots.txt could not be used.
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsAgent returns an agent that fetches robots.txt with client.
// Each lookup is bounded by timeout; zero means no bound beyond ctx.
func NewRobotsAgent(client *http.Client, userAgent string, timeout time.Duration) *RobotsAgent {
	if client == nil {
		client = http.DefaultClient
	}
	return &RobotsAgent{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched.
func (a *RobotsAgent) Allowed(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false
	}

	rules := a.rules(ctx, target)
	if rules == nil {
		return true
	}

	group := rules.FindGroup(a.userAgent)
	if group == nil {
		return true
	}
	return group.Test(target.EscapedPath())
}

// rules returns the cached rules for target's host, fetching them on
// first use. A failed lookup is cached as nil.
func (a *RobotsAgent) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(target.Scheme + "://" + target.Host)

	a.mu.Lock()
	rules, ok := a.cache[host]
	a.mu.Unlock()
	if ok {
		return rules
	}

	rules, err := a.fetch(ctx, host)
	if err != nil && ctx.Err() != nil {
		// The run itself was cancelled; do not remember the host.
		return nil
	}

	a.mu.Lock()
	a.cache[host] = rules
	a.mu.Unlock()
	return rules
}

func (a *RobotsAgent) fetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	rules, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return rules, nil
}
