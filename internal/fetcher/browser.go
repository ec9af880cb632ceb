package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/sitesnap/internal/model"
)

// documentScript serializes the rendered document including its doctype.
const documentScript = `(document.doctype ? new XMLSerializer().serializeToString(document.doctype) + "\n" : "") + document.documentElement.outerHTML`

// anchorsScript lists the resolved href of every anchor in the live document.
const anchorsScript = `Array.from(document.querySelectorAll("a[href]"), a => a.href)`

// screenshotQuality 100 makes chromedp capture PNG.
const screenshotQuality = 100

// ErrBrowserUnavailable is returned when Chrome cannot be started.
var ErrBrowserUnavailable = errors.New("headless browser unavailable")

// BrowserFetcher renders pages in one reused headless Chrome tab.
type BrowserFetcher struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	timeout      time.Duration
	settle       time.Duration
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewBrowserFetcher starts Chrome and opens the tab used by every fetch.
// The browser lives until Close is called or ctx is canceled.
func NewBrowserFetcher(ctx context.Context, opts ...Option) (*BrowserFetcher, error) {
	o := newOptions(DefaultBrowserTimeout, opts)

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(o.width, o.height),
	)
	if o.execPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(o.execPath))
	}
	if o.proxy != "" {
		execOpts = append(execOpts, chromedp.ProxyServer("socks5://"+o.proxy))
	}
	if ua := strings.TrimSpace(o.userAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	f := &BrowserFetcher{
		allocCancel:  allocCancel,
		tabCtx:       tabCtx,
		tabCancel:    tabCancel,
		timeout:      o.timeout,
		settle:       o.settle,
		maxBodyBytes: o.maxBodyBytes,
		logger:       o.logger,
	}

	setup := []chromedp.Action{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(int64(o.width), int64(o.height)),
	}
	if headers := extraHeaders(o.headers, o.cookie); len(headers) > 0 {
		setup = append(setup, network.SetExtraHTTPHeaders(headers))
	}

	if err := chromedp.Run(tabCtx, setup...); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	o.logger.Debug("browser started", "viewport", fmt.Sprintf("%dx%d", o.width, o.height))
	return f, nil
}

func extraHeaders(headers map[string]string, cookie string) network.Headers {
	h := make(network.Headers, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	if cookie != "" {
		h["Cookie"] = cookie
	}
	return h
}

// navigation tracks the main-frame events of one page load.
type navigation struct {
	mu       sync.Mutex
	started  bool
	idle     chan struct{}
	idleOnce sync.Once

	redirectStatus int
	redirectTarget string
}

func newNavigation() *navigation {
	return &navigation{idle: make(chan struct{})}
}

func (n *navigation) handle(mainFrame cdp.FrameID, ev any) {
	switch ev := ev.(type) {
	case *page.EventLifecycleEvent:
		if ev.FrameID != mainFrame {
			return
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		switch ev.Name {
		case "init":
			n.started = true
		case "networkIdle":
			if n.started {
				n.idleOnce.Do(func() { close(n.idle) })
			}
		}
	case *network.EventRequestWillBeSent:
		if ev.Type != network.ResourceTypeDocument || ev.FrameID != mainFrame || ev.RedirectResponse == nil {
			return
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.redirectStatus == 0 {
			n.redirectStatus = int(ev.RedirectResponse.Status)
			n.redirectTarget = ev.Request.URL
		}
	}
}

func (n *navigation) redirect() (int, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirectStatus, n.redirectTarget
}

// Fetch loads rawURL, waits for network idle and captures the document,
// its anchors and a full-page PNG. Non-HTML and non-2xx responses are
// returned without capture.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	fctx, cancel := context.WithTimeout(f.tabCtx, f.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	c := chromedp.FromContext(fctx)
	if c == nil || c.Target == nil {
		return Failure(fmt.Errorf("%w: no browser target", ErrNetwork))
	}
	mainFrame := cdp.FrameID(c.Target.TargetID)

	nav := newNavigation()
	chromedp.ListenTarget(fctx, func(ev any) {
		nav.handle(mainFrame, ev)
	})

	start := time.Now()
	resp, err := chromedp.RunResponse(fctx, chromedp.Navigate(rawURL))
	if status, target := nav.redirect(); status != 0 {
		return Redirect(status, target)
	}
	if err != nil {
		return Failure(f.classify(ctx, fctx, err))
	}
	if resp == nil {
		return Failure(fmt.Errorf("%w: no response for %s", ErrMalformedResponse, rawURL))
	}

	status := int(resp.Status)
	contentType := responseContentType(resp)
	if !model.IsHTMLContentType(contentType) || !model.Status(status).OK() {
		return Success(status, contentType, nil)
	}

	select {
	case <-nav.idle:
	case <-fctx.Done():
		return Failure(f.classify(ctx, fctx, fctx.Err()))
	}

	if f.settle > 0 {
		select {
		case <-time.After(f.settle):
		case <-fctx.Done():
			return Failure(f.classify(ctx, fctx, fctx.Err()))
		}
	}

	var (
		html    string
		anchors []string
		shot    []byte
	)
	err = chromedp.Run(fctx,
		chromedp.Evaluate(documentScript, &html),
		chromedp.Evaluate(anchorsScript, &anchors),
		chromedp.FullScreenshot(&shot, screenshotQuality),
	)
	if err != nil {
		return Failure(f.classify(ctx, fctx, err))
	}
	if int64(len(html)) > f.maxBodyBytes {
		return Failure(fmt.Errorf("%w: document exceeds limit of %d bytes", ErrMalformedResponse, f.maxBodyBytes))
	}

	f.logger.Debug("rendered",
		"url", rawURL,
		"status", status,
		"html_bytes", len(html),
		"anchors", len(anchors),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return Outcome{
		Kind:        KindSuccess,
		StatusCode:  status,
		ContentType: contentType,
		Body:        []byte(html),
		Screenshot:  shot,
		Anchors:     anchors,
	}
}

// classify reports a deadline hit on the per-fetch context as ErrTimeout.
func (f *BrowserFetcher) classify(parent, fctx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(fctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return classify(parent, err)
}

func responseContentType(resp *network.Response) string {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "Content-Type") {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return resp.MimeType
}

// Close shuts the tab and the browser.
func (f *BrowserFetcher) Close() error {
	err := chromedp.Cancel(f.tabCtx)
	f.tabCancel()
	f.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
