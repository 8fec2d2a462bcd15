package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nao1215/listingscan/internal/browser"
	"github.com/nao1215/listingscan/internal/config"
	"github.com/nao1215/listingscan/internal/database"
	"github.com/nao1215/listingscan/internal/fetch"
	"github.com/nao1215/listingscan/internal/log"
	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/pipeline"
	"github.com/nao1215/listingscan/internal/report"
	"github.com/nao1215/listingscan/internal/transport"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [earth911|bestbuy ...]",
		Short: "Extract listings from Earth911 and BestBuy",
		Long: `Scan extracts business listings and writes them as CSV and JSON.

earth911  walks the paginated recycling-center search and reads every
          center's detail page (name, update date, address, materials).
bestbuy   searches the store locator for a zip code in headless Chrome
          and reads every store card (name, address, hours, distance,
          phone, detail link).

Both sites run when none is named.

Examples:
  # Scrape both sites with the defaults
  listingscan scan

  # Only the first three Earth911 listing pages
  listingscan scan earth911 --max-pages 3

  # Stores around another zip code, with a screenshot
  listingscan scan bestbuy -z 94103 --screenshot

  # Both sites at once, Markdown summary on stdout
  listingscan scan -b 2 -m

Configuration file (.listingscan) example:
  defaults:
    retries: 5
  sites:
    earth911:
      maxPages: 10
      detailDelay: 3s
    bestbuy:
      zip: "94103"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Site inputs
	cmd.Flags().StringP(config.FlagURL, "u", config.DefaultStartURL,
		"Earth911 start URL")
	cmd.Flags().StringP(config.FlagZip, "z", config.DefaultZip,
		"BestBuy zip code")

	// Fetch behavior flags
	cmd.Flags().IntP(config.FlagRetries, "r", config.DefaultRetries,
		"Fetch attempts per URL")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Base retry delay; attempt n waits n times this")
	cmd.Flags().Duration(config.FlagPageDelay, config.DefaultPageDelay,
		"Delay between listing pages (minimum 1s)")
	cmd.Flags().Duration(config.FlagDetailDelay, config.DefaultDetailDelay,
		"Delay between detail pages")
	cmd.Flags().Int(config.FlagMaxPages, 0,
		"Maximum number of listing pages (0 = unlimited)")
	cmd.Flags().Float64("rate", 0,
		"Maximum HTTP requests per second (0 = unlimited)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")

	// Browser flags
	cmd.Flags().Bool("screenshot", false,
		"Save a full-page capture of the store locator")
	cmd.Flags().Bool("no-headless", false,
		"Show the browser window")
	cmd.Flags().String("chrome", "",
		"Chrome executable path (default: search the usual locations)")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for CSV, JSON and screenshot files")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print a Markdown summary of each run to stdout")
	cmd.Flags().Bool("no-db", false,
		"Do not record runs in the history database")

	// Batch and configuration
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites processed concurrently; 1 runs them one after another")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .listingscan in current or home directory)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cfg)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cmd.OutOrStdout(), cfg, cmd.Flags().Changed, logger)
}

// persistentBool reads a root flag, falling back to the zero value when
// the command runs without its parent (as in tests).
func persistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return v
}

func persistentString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// buildConfig creates a Config from command-line flags, arguments and
// the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if len(args) > 0 {
		sites := make([]model.Site, 0, len(args))
		for _, arg := range args {
			site, err := model.ParseSite(arg)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(sites, site) {
				sites = append(sites, site)
			}
		}
		cfg.Sites = sites
	}

	flags := cmd.Flags()
	var err error

	if cfg.StartURL, err = flags.GetString(config.FlagURL); err != nil {
		return nil, err
	}
	if cfg.Zip, err = flags.GetString(config.FlagZip); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt(config.FlagRetries); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.PageDelay, err = flags.GetDuration(config.FlagPageDelay); err != nil {
		return nil, err
	}
	if cfg.DetailDelay, err = flags.GetDuration(config.FlagDetailDelay); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt(config.FlagMaxPages); err != nil {
		return nil, err
	}
	if cfg.RequestRate, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Screenshot, err = flags.GetBool("screenshot"); err != nil {
		return nil, err
	}
	noHeadless, err := flags.GetBool("no-headless")
	if err != nil {
		return nil, err
	}
	cfg.Headless = !noHeadless
	if cfg.BrowserPath, err = flags.GetString("chrome"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	cfg.Verbose = persistentBool(cmd, "verbose")
	cfg.LogFile = persistentString(cmd, "log-file")

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	found := config.FindConfigFile(configPath)
	if configPath != "" && found == "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}
	if found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.ConfigFilePath = found
		cfg.SiteConfigs = file
	}

	return cfg, nil
}

// setupLogger creates the process logger. The returned function closes
// the log file, if any.
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	if cfg.LogFile == "" {
		return log.NewLogger(os.Stderr, cfg.Verbose), func() {}
	}
	fw := log.NewFileWriter(cfg.LogFile)
	return log.NewLogger(io.MultiWriter(os.Stderr, fw), cfg.Verbose), func() {
		_ = fw.Close() //nolint:errcheck // nothing left to log to
	}
}

// scanJob pairs a batch job with the settings it was built from.
type scanJob struct {
	job pipeline.Job
	cfg *config.Config
}

// runScan runs every selected site and writes its results.
// It returns an error when the scan was interrupted or any run failed.
func runScan(ctx context.Context, out io.Writer, cfg *config.Config, explicit func(string) bool, logger *slog.Logger) error {
	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress).Err(); err != nil {
			return fmt.Errorf("proxy %s is not usable: %w", cfg.ProxyAddress, err)
		}
	}

	jobs, err := buildJobs(cfg, explicit, logger)
	if err != nil {
		return err
	}

	var db *database.RecordDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	bp := pipeline.NewBatchProcessor(
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)

	batch := make([]pipeline.Job, len(jobs))
	for i, j := range jobs {
		batch[i] = j.job
	}

	fmt.Fprintf(out, "Scraping %d site(s) (concurrency: %d)...\n\n", len(jobs), bp.Concurrency())
	startTime := time.Now()

	var (
		mu     sync.Mutex
		failed int
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, batch, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		finishRun(ctx, out, run, jobs[index].cfg, db, logger)
		if run.Failed() {
			failed++
		}
		stats := run.Stats()
		fmt.Fprintf(out, "[%d/%d] %s: %d record(s), %d discarded, %d skipped in %s\n",
			index+1, len(jobs), run.Site, stats.Succeeded, stats.Discarded, stats.Skipped,
			run.Duration().Round(time.Millisecond))
	})

	fmt.Fprintf(out, "\nCompleted in %s\n", time.Since(startTime).Round(time.Millisecond))

	if batchErr != nil {
		return fmt.Errorf("scan interrupted: %w", batchErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d site run(s) failed", failed, len(jobs))
	}
	return nil
}

// buildJobs creates one job per selected site from its merged settings.
func buildJobs(cfg *config.Config, explicit func(string) bool, logger *slog.Logger) ([]scanJob, error) {
	jobs := make([]scanJob, 0, len(cfg.Sites))
	for _, site := range cfg.Sites {
		siteCfg := cfg.ForSite(site, explicit)
		if err := siteCfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: configuration error: %w", site, err)
		}

		siteLogger := logger.With("site", site.String())
		var (
			job pipeline.Job
			err error
		)
		switch site {
		case model.SiteEarth911:
			job, err = earth911Job(siteCfg, siteLogger)
		case model.SiteBestBuy:
			job = bestBuyJob(siteCfg, siteLogger)
		default:
			err = fmt.Errorf("%w: %s", model.ErrUnknownSite, site)
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, scanJob{job: job, cfg: siteCfg})
	}
	return jobs, nil
}

// earth911Job builds the HTTP pipeline. The client and fetcher are shared
// by every page of the run.
func earth911Job(c *config.Config, logger *slog.Logger) (pipeline.Job, error) {
	client, err := transport.NewHTTPClient(
		transport.WithTimeout(c.Timeout),
		transport.WithProxy(c.ProxyAddress),
		transport.WithCookie(c.Cookie),
		transport.WithHeaders(c.Headers),
	)
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	fetcher := fetch.New(client,
		fetch.WithMaxRetries(c.Retries),
		fetch.WithRetryDelay(c.RetryDelay),
		fetch.WithUserAgent(c.UserAgent),
		fetch.WithMaxBodySize(c.MaxBodySize),
		fetch.WithRateLimit(rate.Limit(c.RequestRate), 1),
		fetch.WithLogger(logger),
	)

	pc := pipeline.DefaultEarth911Config()
	pc.PageDelay = c.PageDelay
	pc.DetailDelay = c.DetailDelay
	pc.MaxPages = c.MaxPages
	if c.BaseURL != "" {
		base, err := url.Parse(c.BaseURL)
		if err != nil || base.Host == "" {
			return pipeline.Job{}, fmt.Errorf("invalid base URL %q", c.BaseURL)
		}
		pc.BaseURL = base
	}

	return pipeline.Job{
		Site:   model.SiteEarth911,
		Target: c.StartURL,
		Build: func() *pipeline.Pipeline {
			return pipeline.Earth911Pipeline(fetcher, pc, logger)
		},
	}, nil
}

// bestBuyJob builds the browser pipeline. Chrome starts when the search
// step runs, not before.
func bestBuyJob(c *config.Config, logger *slog.Logger) pipeline.Job {
	sessionOpts := []browser.SessionOption{
		browser.WithHeadless(c.Headless),
		browser.WithBrowserUserAgent(c.UserAgent),
		browser.WithBrowserProxy(c.ProxyAddress),
		browser.WithExecPath(c.BrowserPath),
	}
	newDriver := func(ctx context.Context) (browser.Driver, error) {
		return browser.NewSession(ctx, sessionOpts...)
	}

	pc := pipeline.DefaultBestBuyConfig()
	if c.Screenshot {
		pc.ScreenshotDir = c.OutputDir
	}

	return pipeline.Job{
		Site:   model.SiteBestBuy,
		Target: c.Zip,
		Build: func() *pipeline.Pipeline {
			return pipeline.BestBuyPipeline(newDriver, pc, logger)
		},
	}
}

// finishRun writes the files, the optional Markdown summary and the
// history entry of a finished run. A failed run writes no files. Write
// failures are recorded on the run.
func finishRun(ctx context.Context, out io.Writer, run *model.Run, c *config.Config, db *database.RecordDB, logger *slog.Logger) {
	if run.Failed() {
		fmt.Fprintf(out, "%s failed: %s\n", run.Site, run.ErrorMessage)
	} else {
		paths, err := report.SaveFiles(c.OutputDir, run)
		if err != nil {
			logger.Error("failed to write output files", "error", err)
			run.Fail(fmt.Errorf("failed to write output files: %w", err))
		}
		for _, p := range paths {
			fmt.Fprintf(out, "  wrote %s\n", p)
		}
		if len(paths) == 0 && err == nil {
			fmt.Fprintf(out, "  no %s records extracted, nothing written\n", run.Site)
		}
	}

	if run.ScreenshotPath != "" {
		fmt.Fprintf(out, "  screenshot %s\n", run.ScreenshotPath)
	}

	if c.MarkdownReport {
		if _, err := report.NewMarkdownWriter(out).WriteSummary(run); err != nil {
			logger.Warn("failed to write markdown summary", "error", err)
		}
		fmt.Fprintln(out)
	}

	if db != nil {
		// A cancelled run is still recorded.
		if err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn("failed to save run to database", "error", err)
		} else {
			logger.Debug("run saved to database", "run_id", run.ID)
		}
	}
}
