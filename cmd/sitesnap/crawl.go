package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/sitesnap/internal/canon"
	"github.com/nao1215/sitesnap/internal/config"
	"github.com/nao1215/sitesnap/internal/crawler"
	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/fetcher"
	"github.com/nao1215/sitesnap/internal/log"
	"github.com/nao1215/sitesnap/internal/model"
	"github.com/nao1215/sitesnap/internal/pipeline"
	"github.com/nao1215/sitesnap/internal/report"
	"github.com/nao1215/sitesnap/internal/snapshot"
	"github.com/nao1215/sitesnap/internal/transport"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <startURL> [outputDir]",
		Short: "Crawl a site and save a snapshot of every page",
		Long: `Crawl fetches every page reachable from the start URL on the same origin,
one request at a time in breadth-first order.

The output directory receives:
- html/<name>.html for every HTML page fetched with a 2xx status
- screenshots/<name>.png for the same pages (rendered mode only)
- manifest.json listing every fetched URL with its status

Links are followed only within the start URL's scheme, host and port.
Redirects are recorded once and their target is queued like any other link.
Network failures and timeouts are recorded with status ERROR.

Examples:
  # Snapshot a site with headless Chrome into ./snapshots-baseline
  sitesnap crawl https://example.com/

  # Crawl over plain HTTP into a named directory
  sitesnap crawl --mode raw http://localhost:8080/ ./snapshots-current

  # Stop after 200 pages, waiting 500ms between requests
  sitesnap crawl --max-pages 200 --delay 500ms https://example.com/

  # Print the summary as Markdown
  sitesnap crawl --format markdown https://example.com/

Configuration file (.sitesnap) example:
  defaults:
    mode: raw
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCrawlCmd,
	}

	// Fetch flags
	cmd.Flags().StringP("mode", "m", config.DefaultMode,
		"Fetch mode: rendered (headless Chrome, screenshots) or raw (plain HTTP)")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Per-page timeout (default 10s raw, 30s rendered)")
	cmd.Flags().String("parser", config.DefaultParser,
		"Link parser for raw mode: regex or html")
	cmd.Flags().Bool("pretty", false,
		"Insert line breaks between tags before saving markup")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Browser flags
	cmd.Flags().String("viewport", fmt.Sprintf("%dx%d", config.DefaultViewportWidth, config.DefaultViewportHeight),
		"Browser viewport as WIDTHxHEIGHT")
	cmd.Flags().Duration("settle", 0,
		"Extra wait after the network goes idle before capturing a page")
	cmd.Flags().String("chrome", "",
		"Path to the Chrome or Chromium binary (default: search PATH)")

	// Crawl limit flags
	cmd.Flags().DurationP("delay", "d", 0,
		"Minimum delay between requests")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop after fetching this many URLs (0 = no limit)")
	cmd.Flags().Bool("respect-robots", false,
		"Skip URLs disallowed by robots.txt")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitesnap in current or home directory)")

	// Output flags
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Summary format: text, json or markdown")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Bool("log-json", false,
		"Write diagnostics as JSON lines")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	cfg.StartURL = args[0]
	if len(args) > 1 {
		cfg.OutputDir = args[1]
	}

	var err error
	if cfg.Mode, err = flags.GetString("mode"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Parser, err = flags.GetString("parser"); err != nil {
		return nil, err
	}
	if cfg.Pretty, err = flags.GetBool("pretty"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}

	viewport, err := flags.GetString("viewport")
	if err != nil {
		return nil, err
	}
	if err := cfg.SetViewport(viewport); err != nil {
		return nil, err
	}
	if cfg.Settle, err = flags.GetDuration("settle"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome"); err != nil {
		return nil, err
	}

	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}

	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.NoHistory, err = flags.GetBool("no-history"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := applyConfigFile(cfg, flags.Changed); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigFile merges the site settings for the start URL's host.
// An explicitly given file must exist; otherwise a missing file is ignored.
func applyConfigFile(cfg *config.Config, changed func(string) bool) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	if err := cfg.ApplySite(file.SiteFor(cfg.StartURL), changed); err != nil {
		return fmt.Errorf("invalid site configuration in %s: %w", configPath, err)
	}
	return nil
}

// setupLogger creates the redacting diagnostic logger.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// runCrawl crawls cfg.StartURL and prints the summary to stdout. Progress
// counters go to stderr.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	if _, err := canon.Canonicalize(cfg.StartURL, ""); err != nil {
		return fmt.Errorf("invalid start URL: %w", err)
	}

	client, err := transport.NewClient(
		transport.WithProxy(cfg.Proxy),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithCookie(cfg.Cookie),
		transport.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if err := client.CheckProxy(ctx); err != nil {
		return fmt.Errorf("proxy check failed: %w", err)
	}

	f, extractor, err := newFetcher(ctx, cfg, client, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close fetcher", "error", err)
		}
	}()

	writer := snapshot.NewWriter(cfg.OutputDir,
		snapshot.WithPretty(cfg.Pretty),
		snapshot.WithLogger(logger),
	)
	spider := crawler.NewSpider(f, extractor, writer, spiderOptions(cfg, client, logger, stderr)...)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewPrepareStep(writer),
		pipeline.NewCrawlStep(spider),
		pipeline.NewManifestStep(),
	)

	if !cfg.NoHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("crawl history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			p.AddStep(pipeline.NewHistoryStep(db, pipeline.WithHistoryLogger(logger)))
		}
	}

	logger.Info("starting crawl",
		"startURL", cfg.StartURL,
		"outputDir", cfg.OutputDir,
		"mode", cfg.Mode,
		"timeout", cfg.EffectiveTimeout(),
	)

	run := model.NewRun(cfg.StartURL, cfg.OutputDir)
	if err := p.Execute(ctx, run); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("crawl interrupted after %d pages: %w", len(run.Results), err)
		}
		return err
	}

	logger.Info("crawl finished",
		"pages", len(run.Results),
		"elapsed", time.Since(run.StartedAt).Round(time.Millisecond),
		"manifest", run.ManifestPath,
	)

	w, err := report.New(cfg.Format, stdout, cfg.OutputDir)
	if err != nil {
		return err
	}
	if _, err := w.Write(run.Manifest); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// newFetcher returns the fetcher for the configured mode and the link
// extractor that understands its outcomes.
func newFetcher(ctx context.Context, cfg *config.Config, client *transport.Client, logger *slog.Logger) (fetcher.Fetcher, crawler.Extractor, error) {
	common := []fetcher.Option{
		fetcher.WithTimeout(cfg.EffectiveTimeout()),
		fetcher.WithMaxBodyBytes(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
	}

	if cfg.Mode == config.ModeRaw {
		var extractor crawler.Extractor = crawler.NewRegexExtractor()
		if cfg.Parser == config.ParserHTML {
			extractor = crawler.NewHTMLExtractor()
		}
		return fetcher.NewHTTPFetcher(client.HTTPClient(), common...), extractor, nil
	}

	opts := append(common,
		fetcher.WithSettle(cfg.Settle),
		fetcher.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight),
		fetcher.WithExecPath(cfg.ChromePath),
		fetcher.WithProxy(cfg.Proxy),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithCookie(cfg.Cookie),
	)
	bf, err := fetcher.NewBrowserFetcher(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start browser (use --mode raw to crawl without Chrome): %w", err)
	}
	return bf, crawler.NewDOMExtractor(), nil
}

// spiderOptions translates the crawl limits into Spider options.
func spiderOptions(cfg *config.Config, client *transport.Client, logger *slog.Logger, progress io.Writer) []crawler.SpiderOption {
	opts := []crawler.SpiderOption{
		crawler.WithLogger(logger),
		crawler.WithProgress(progress),
		crawler.WithMaxPages(cfg.MaxPages),
	}
	if cfg.Delay > 0 {
		opts = append(opts, crawler.WithLimiter(crawler.NewLimiter(cfg.Delay)))
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithRobots(crawler.NewRobotsAgent(client.HTTPClient(), cfg.UserAgent, cfg.EffectiveTimeout())))
	}
	if filter := crawler.NewPathFilter(cfg.IgnorePatterns, cfg.FollowPatterns); !filter.Empty() {
		opts = append(opts, crawler.WithPathFilter(filter))
	}
	return opts
}
