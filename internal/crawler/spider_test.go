package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitesnap/internal/fetcher"
	"github.com/nao1215/sitesnap/internal/model"
	"github.com/nao1215/sitesnap/internal/transport"
)

// fakeFetcher serves canned outcomes and records every fetch.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fetcher.Outcome
	calls []string
}

func newFakeFetcher(pages map[string]fetcher.Outcome) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) fetcher.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if out, ok := f.pages[rawURL]; ok {
		return out
	}
	return fetcher.Success(http.StatusNotFound, "text/html", []byte("not found"))
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// memorySaver keeps saved artifacts in memory.
type memorySaver struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func newMemorySaver() *memorySaver {
	return &memorySaver{saved: make(map[string][]byte)}
}

func (m *memorySaver) Save(result model.PageResult, html, _ []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[result.URL] = html
	return nil
}

// shuffleExtractor returns references in a seeded random order.
type shuffleExtractor struct {
	inner Extractor
	rng   *rand.Rand
}

func (s *shuffleExtractor) Name() string { return "shuffle" }

func (s *shuffleExtractor) References(out fetcher.Outcome) []string {
	refs := s.inner.References(out)
	s.rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	return refs
}

// htmlPage builds an HTML success linking to each href.
func htmlPage(hrefs ...string) fetcher.Outcome {
	var b strings.Builder
	b.WriteString("<html><head><title>page</title></head><body>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, h)
	}
	b.WriteString("</body></html>")
	return fetcher.Success(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

func resultByURL(results []model.PageResult, u string) (model.PageResult, bool) {
	for _, r := range results {
		if r.URL == u {
			return r, true
		}
	}
	return model.PageResult{}, false
}

// TestSpiderCrossOrigin tests that other origins are never fetched.
func TestSpiderCrossOrigin(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":      htmlPage("/about", "http://external.test/"),
		"http://x/about": htmlPage("/"),
	})
	spider := NewSpider(f, NewRegexExtractor(), newMemorySaver())

	results, err := spider.Crawl(context.Background(), "http://x/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := f.Calls()
	want := []string{"http://x/", "http://x/about"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("expected fetches %v, got %v", want, calls)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

// TestSpiderAtMostOnce tests that equivalent URLs are fetched once.
func TestSpiderAtMostOnce(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":  htmlPage("/a", "/a/", "/a#frag", "/a?q=1", "/", "http://x"),
		"http://x/a": htmlPage("/", "/b", "/a"),
		"http://x/b": htmlPage("/a/", "/", "/b/"),
	})
	spider := NewSpider(f, NewRegexExtractor(), newMemorySaver())

	if _, err := spider.Crawl(context.Background(), "http://x/#start"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]int)
	for _, c := range f.Calls() {
		seen[c]++
	}
	for u, n := range seen {
		if n != 1 {
			t.Errorf("%s fetched %d times", u, n)
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct fetches, got %v", f.Calls())
	}
}

// TestSpiderBreadthFirst tests FIFO traversal order.
func TestSpiderBreadthFirst(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":   htmlPage("/a", "/b"),
		"http://x/a":  htmlPage("/a1"),
		"http://x/b":  htmlPage("/b1"),
		"http://x/a1": htmlPage(),
		"http://x/b1": htmlPage(),
	})
	spider := NewSpider(f, NewRegexExtractor(), newMemorySaver())

	if _, err := spider.Crawl(context.Background(), "http://x/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "http://x/,http://x/a,http://x/b,http://x/a1,http://x/b1"
	if got := strings.Join(f.Calls(), ","); got != want {
		t.Errorf("expected order %s, got %s", want, got)
	}
}

// randomSite builds a same-origin link graph of n pages.
func randomSite(n int, seed int64) map[string]fetcher.Outcome {
	rng := rand.New(rand.NewSource(seed))
	pages := make(map[string]fetcher.Outcome, n)
	for i := 0; i < n; i++ {
		var links []string
		for j := 0; j < 4; j++ {
			links = append(links, fmt.Sprintf("/p%d", rng.Intn(n)))
		}
		key := fmt.Sprintf("http://x/p%d", i)
		if i == 0 {
			key = "http://x/"
			links = append(links, "/p1")
		}
		pages[key] = htmlPage(links...)
	}
	return pages
}

// TestSpiderConfluence tests that the visited set does not depend on
// extraction order, and that the crawl terminates on cyclic graphs.
func TestSpiderConfluence(t *testing.T) {
	t.Parallel()

	site := randomSite(40, 7)

	var reference []string
	for seed := int64(0); seed < 5; seed++ {
		f := newFakeFetcher(site)
		extractor := &shuffleExtractor{inner: NewRegexExtractor(), rng: rand.New(rand.NewSource(seed))}
		spider := NewSpider(f, extractor, newMemorySaver())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := spider.Crawl(ctx, "http://x/")
		cancel()
		if err != nil {
			t.Fatalf("seed %d: unexpected error: %v", seed, err)
		}

		visited := f.Calls()
		sort.Strings(visited)
		if reference == nil {
			reference = visited
			continue
		}
		if strings.Join(visited, ",") != strings.Join(reference, ",") {
			t.Errorf("seed %d: visited set differs:\n%v\n%v", seed, visited, reference)
		}
	}
}

// TestSpiderNonHTML tests that non-HTML successes are recorded but not saved.
func TestSpiderNonHTML(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":         fetcher.Success(http.StatusOK, "text/html", []byte(`<html><body><img src="/logo.png"></body></html>`)),
		"http://x/logo.png": fetcher.Success(http.StatusOK, "image/png", []byte{0x89, 'P', 'N', 'G'}),
	})

	saver := newMemorySaver()
	spider := NewSpider(f, NewRegexExtractor(), saver)

	results, err := spider.Crawl(context.Background(), "http://x/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logo, ok := resultByURL(results, "http://x/logo.png")
	if !ok {
		t.Fatal("expected a result for the image")
	}
	if logo.Saved {
		t.Error("expected image not to be saved")
	}
	if logo.Skipped != model.SkipNotHTML {
		t.Errorf("expected skipped %q, got %q", model.SkipNotHTML, logo.Skipped)
	}
	if _, ok := saver.saved["http://x/logo.png"]; ok {
		t.Error("expected no artifact for the image")
	}
	if _, ok := saver.saved["http://x/"]; !ok {
		t.Error("expected the HTML page to be saved")
	}
}

// TestSpiderRedirect tests that redirect sources and targets get separate results.
func TestSpiderRedirect(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":     htmlPage("/old", "/away"),
		"http://x/old":  fetcher.Redirect(http.StatusFound, "http://x/new"),
		"http://x/new":  htmlPage(),
		"http://x/away": fetcher.Redirect(http.StatusMovedPermanently, "http://external.test/"),
	})
	saver := newMemorySaver()
	spider := NewSpider(f, NewRegexExtractor(), saver)

	results, err := spider.Crawl(context.Background(), "http://x/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	old, ok := resultByURL(results, "http://x/old")
	if !ok {
		t.Fatal("expected a result for /old")
	}
	if old.Status != http.StatusFound || old.RedirectTarget != "http://x/new" || old.Saved {
		t.Errorf("unexpected redirect result %+v", old)
	}
	if _, ok := saver.saved["http://x/old"]; ok {
		t.Error("expected redirect source not to be saved")
	}

	newPage, ok := resultByURL(results, "http://x/new")
	if !ok {
		t.Fatal("expected a result for /new")
	}
	if newPage.Status != http.StatusOK || !newPage.Saved {
		t.Errorf("unexpected target result %+v", newPage)
	}

	for _, c := range f.Calls() {
		if strings.Contains(c, "external.test") {
			t.Errorf("cross-origin redirect target was fetched: %s", c)
		}
	}
}

// TestSpiderFailures tests that per-URL failures do not stop the crawl.
func TestSpiderFailures(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":     htmlPage("/slow", "/missing", "/ok"),
		"http://x/slow": fetcher.Failure(fmt.Errorf("%w: context deadline exceeded", fetcher.ErrTimeout)),
		"http://x/ok":   htmlPage(),
	})
	spider := NewSpider(f, NewRegexExtractor(), newMemorySaver())

	results, err := spider.Crawl(context.Background(), "http://x/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slow, _ := resultByURL(results, "http://x/slow")
	if slow.Status != model.StatusError || !strings.Contains(slow.Error, "timeout") {
		t.Errorf("expected ERROR result with timeout, got %+v", slow)
	}

	missing, _ := resultByURL(results, "http://x/missing")
	if missing.Status != http.StatusNotFound || missing.Saved || missing.Skipped != "HTTP 404" {
		t.Errorf("unexpected 404 result %+v", missing)
	}

	ok, _ := resultByURL(results, "http://x/ok")
	if !ok.Saved {
		t.Error("expected crawl to continue past failures")
	}
}

// TestSpiderSaverError tests that persistence failures are fatal.
func TestSpiderSaverError(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]fetcher.Outcome{"http://x/": htmlPage("/a")})
	saver := newMemorySaver()
	saver.err = errors.New("permission denied")
	spider := NewSpider(f, NewRegexExtractor(), saver)

	_, err := spider.Crawl(context.Background(), "http://x/")
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("expected saver error, got %v", err)
	}
	if len(f.Calls()) != 1 {
		t.Errorf("expected crawl to stop after the first page, got %v", f.Calls())
	}
}

// TestSpiderStartURL tests rejection of unusable start URLs.
func TestSpiderStartURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   string
		wantErr error
	}{
		{name: "relative", start: "/just/a/path"},
		{name: "garbage", start: "http://%zz"},
		{name: "ftp scheme", start: "ftp://x/", wantErr: ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeFetcher(nil)
			_, err := NewSpider(f, NewRegexExtractor(), newMemorySaver()).Crawl(context.Background(), tt.start)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(f.Calls()) != 0 {
				t.Errorf("expected no fetches, got %v", f.Calls())
			}
		})
	}
}

// TestSpiderCanceled tests that cancellation aborts the run.
func TestSpiderCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFakeFetcher(map[string]fetcher.Outcome{"http://x/": htmlPage()})
	_, err := NewSpider(f, NewRegexExtractor(), newMemorySaver()).Crawl(ctx, "http://x/")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestSpiderLimits tests the optional page limit and path filter.
func TestSpiderLimits(t *testing.T) {
	t.Parallel()

	site := map[string]fetcher.Outcome{
		"http://x/":            htmlPage("/a", "/b", "/admin/panel"),
		"http://x/a":           htmlPage(),
		"http://x/b":           htmlPage(),
		"http://x/admin/panel": htmlPage(),
	}

	t.Run("max pages", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(site)
		results, err := NewSpider(f, NewRegexExtractor(), newMemorySaver(), WithMaxPages(2)).
			Crawl(context.Background(), "http://x/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("expected 2 results, got %d", len(results))
		}
	})

	t.Run("ignored paths are not fetched or recorded", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(site)
		results, err := NewSpider(f, NewRegexExtractor(), newMemorySaver(),
			WithPathFilter(NewPathFilter([]string{"/admin/*"}, nil))).
			Crawl(context.Background(), "http://x/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := resultByURL(results, "http://x/admin/panel"); ok {
			t.Error("expected /admin/panel to be skipped")
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
	})
}

// TestSpiderProgress tests the progress counters.
func TestSpiderProgress(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":  htmlPage("/a"),
		"http://x/a": htmlPage(),
	})
	if _, err := NewSpider(f, NewRegexExtractor(), newMemorySaver(), WithProgress(&buf)).
		Crawl(context.Background(), "http://x/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Crawled: 1 pages, Queue: 1") || !strings.Contains(out, "Crawled: 2 pages, Queue: 0") {
		t.Errorf("unexpected progress output %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("expected progress to end with a newline")
	}
}

// TestSpiderFinishedLog tests the summary record logged at the end of a crawl.
func TestSpiderFinishedLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	f := newFakeFetcher(map[string]fetcher.Outcome{
		"http://x/":  htmlPage("/a", "/b"),
		"http://x/a": htmlPage("/"),
		"http://x/b": htmlPage(),
	})
	if _, err := NewSpider(f, NewRegexExtractor(), newMemorySaver(), WithLogger(logger)).
		Crawl(context.Background(), "http://x/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "crawl finished") || !strings.Contains(out, "pages=3") || !strings.Contains(out, "visited=3") {
		t.Errorf("unexpected log output %q", out)
	}
}

// TestSpiderManifestDeterminism tests that discovery order does not show in the manifest.
func TestSpiderManifestDeterminism(t *testing.T) {
	t.Parallel()

	site := randomSite(25, 42)
	crawledAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var manifests []string
	for seed := int64(0); seed < 3; seed++ {
		f := newFakeFetcher(site)
		extractor := &shuffleExtractor{inner: NewRegexExtractor(), rng: rand.New(rand.NewSource(seed))}
		results, err := NewSpider(f, extractor, newMemorySaver()).Crawl(context.Background(), "http://x/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := json.Marshal(model.NewManifest(crawledAt, "http://x/", results))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		manifests = append(manifests, string(data))
	}

	for i := 1; i < len(manifests); i++ {
		if manifests[i] != manifests[0] {
			t.Errorf("manifest %d differs from manifest 0", i)
		}
	}
}

// TestSpiderHTTP crawls a real local server with the raw fetcher.
func TestSpiderHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
<a href="/about/">About</a>
<a href="/old">Old</a>
<a href="mailto:me@example.com">Mail</a>
<a href="http://external.test/">External</a>
<img src="/logo.png">
</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="/">Home</a><a href="/gone">Gone</a></body></html>`))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/about", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := transport.NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := fetcher.NewHTTPFetcher(client.HTTPClient())
	defer f.Close()

	saver := newMemorySaver()
	results, err := NewSpider(f, NewRegexExtractor(), saver).Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]model.Status{
		srv.URL + "/":         http.StatusOK,
		srv.URL + "/about":    http.StatusOK,
		srv.URL + "/old":      http.StatusMovedPermanently,
		srv.URL + "/logo.png": http.StatusOK,
		srv.URL + "/gone":     http.StatusNotFound,
	}
	if len(results) != len(want) {
		t.Errorf("expected %d results, got %d: %+v", len(want), len(results), results)
	}
	for u, status := range want {
		r, ok := resultByURL(results, u)
		if !ok {
			t.Errorf("missing result for %s", u)
			continue
		}
		if r.Status != status {
			t.Errorf("%s: expected status %d, got %v", u, status, r.Status)
		}
	}
	if len(saver.saved) != 2 {
		t.Errorf("expected 2 saved pages, got %d", len(saver.saved))
	}
}

// TestSpiderRobotsHanging tests that a stalled robots.txt cannot stall the crawl.
func TestSpiderRobotsHanging(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<html><body><a href="/a">A</a><a href="/b">B</a></body></html>`))
		case "/a", "/b":
			_, _ = w.Write([]byte(`<html><body><a href="/">Home</a></body></html>`))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)

	client, err := transport.NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	timeout := 200 * time.Millisecond
	f := fetcher.NewHTTPFetcher(client.HTTPClient(), fetcher.WithTimeout(timeout))
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	spider := NewSpider(f, NewRegexExtractor(), newMemorySaver(),
		WithRobots(NewRobotsAgent(client.HTTPClient(), "SiteCrawler/1.0", timeout)))
	results, err := spider.Crawl(ctx, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected crawl to finish promptly, took %v", elapsed)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d: %+v", len(results), results)
	}
}
