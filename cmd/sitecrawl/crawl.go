package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/fetch"
	"github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/metrics"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/pipeline"
	"github.com/nao1215/sitecrawl/internal/report"
)

// runCrawlCmd executes the crawl for the single seed URL in args.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), log.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
	})
	slog.SetDefault(logger)

	// SIGINT/SIGTERM stop the crawl; the partial report is still written.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file. Values from the file only apply where the matching
// flag was not set explicitly.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Target = args[0]

	flags := cmd.Flags()
	var err error

	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxBodyChars, err = flags.GetInt("max-body-chars"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.PrefixScope, err = flags.GetBool("prefix-scope"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.TeeReport, err = flags.GetBool("tee"); err != nil {
		return nil, err
	}
	if cfg.DBPath, err = flags.GetString("db"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// Otherwise silently use an empty config when no file exists.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	site := siteConfigFor(cfg)
	if site.UserAgent != "" && !flags.Changed("user-agent") {
		cfg.UserAgent = site.UserAgent
	}
	if site.MaxPages != 0 && !flags.Changed("max-pages") {
		cfg.MaxPages = site.MaxPages
	}

	return cfg, nil
}

// siteConfigFor returns the merged site configuration for the target's host.
func siteConfigFor(cfg *config.Config) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(targetHost(cfg.Target))
}

// targetHost returns the lowercased host[:port] of rawURL, or "" when it
// cannot be parsed.
func targetHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// runCrawl builds the fetcher, spider and output pipeline for cfg and runs it.
func runCrawl(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	site := siteConfigFor(cfg)

	client, err := newFetchClient(cfg, site)
	if err != nil {
		return err
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	spider := crawler.NewSpider(client,
		crawler.WithLogger(logger),
		crawler.WithObserver(collector),
		crawler.WithScopeMode(scopeMode(cfg)),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
	)

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddStep(pipeline.NewCrawlStep(spider, model.NewLedger(), pipeline.WithCrawlLogger(logger)))
	writer := newReportWriter(cfg, output)
	if cfg.TeeReport && cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)))
	}
	p.AddFinalizer(pipeline.NewReportStep(writer))

	var exports []pipeline.Step
	if cfg.ShouldSaveToDB() {
		exports = append(exports, pipeline.NewDatabaseStep(cfg.ResolvedDBPath(),
			pipeline.WithDatabaseLogger(logger)))
	}
	if cfg.MetricsFile != "" {
		exports = append(exports, pipeline.NewMetricsStep(collector, cfg.MetricsFile))
	}
	if len(exports) > 0 {
		p.AddFinalizer(pipeline.NewParallel(exports))
	}

	logger.Info("starting crawl",
		"url", cfg.Target,
		"scope", scopeMode(cfg),
		"max_pages", cfg.MaxPages,
		"steps", p.StepNames(),
	)
	fmt.Fprintf(stderr, "Crawling the URL: %s\n", cfg.Target)

	crawlReport := model.NewCrawlReport(cfg.Target)
	err = p.Execute(ctx, crawlReport)

	if crawlReport.Canceled {
		fmt.Fprintln(stderr, "Crawl interrupted: the report only covers the pages visited so far.")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newFetchClient builds the HTTP fetcher from the configuration.
func newFetchClient(cfg *config.Config, site config.SiteConfig) (*fetch.Client, error) {
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodyChars(cfg.MaxBodyChars),
		fetch.WithCookie(site.Cookie),
		fetch.WithHeaders(site.Headers),
	}

	if cfg.ProxyAddress != "" {
		httpClient, err := fetch.NewProxyHTTPClient(cfg.ProxyAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", cfg.ProxyAddress, err)
		}
		opts = append(opts, fetch.WithHTTPClient(httpClient))
	}

	return fetch.NewClient(opts...), nil
}

// scopeMode maps the --prefix-scope flag to a crawler.ScopeMode.
func scopeMode(cfg *config.Config) crawler.ScopeMode {
	if cfg.PrefixScope {
		return crawler.ScopePrefix
	}
	return crawler.ScopeSubtree
}

// newReportWriter selects the report format requested by cfg.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output, report.WithPieChart(true))
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// openOutput returns the report destination: the file at path, or stdout
// when path is empty. The returned function closes the file.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may contain URLs of authenticated areas, so keep them private.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return f, func() { _ = f.Close() }, nil //nolint:errcheck // best-effort close after write
}
