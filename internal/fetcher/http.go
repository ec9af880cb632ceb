package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/sitesnap/internal/canon"
)

// HTTPFetcher fetches pages with a plain GET. Scripts are not executed.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHTTPFetcher wraps client. The client must not follow redirects;
// transport.Client.HTTPClient returns one that does not.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	o := newOptions(DefaultHTTPTimeout, opts)
	return &HTTPFetcher{
		client:       client,
		timeout:      o.timeout,
		maxBodyBytes: o.maxBodyBytes,
		logger:       o.logger,
	}
}

// Fetch downloads rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Failure(fmt.Errorf("%w: build request: %v", ErrNetwork, err))
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Failure(classify(ctx, err))
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if isRedirect(resp.StatusCode) {
		if loc := resp.Header.Get("Location"); loc != "" {
			target, err := canon.Resolve(loc, rawURL)
			if err != nil {
				return Failure(fmt.Errorf("%w: bad Location %q: %v", ErrMalformedResponse, loc, err))
			}
			return Redirect(resp.StatusCode, target.String())
		}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return Failure(classify(ctx, err))
	}

	f.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"content_type", contentType,
		"bytes", len(body),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return Success(resp.StatusCode, contentType, body)
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func isRedirect(code int) bool {
	return code >= 300 && code < 400
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	var closers []io.Closer

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip decode: %v", ErrMalformedResponse, err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		if encoding != "" && !isTimeout(err) {
			return nil, fmt.Errorf("%w: %s decode: %v", ErrMalformedResponse, encoding, err)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: response body exceeds limit of %d bytes", ErrMalformedResponse, f.maxBodyBytes)
	}
	return body, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
}
