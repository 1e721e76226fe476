package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"iphone-price-catalog/config"
	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/scraper/ahamo"
	"iphone-price-catalog/scraper/au"
	"iphone-price-catalog/scraper/docomo"
	"iphone-price-catalog/scraper/rakuten"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/scraper/softbank"
	"iphone-price-catalog/scraper/uq"
	"iphone-price-catalog/services"
	"iphone-price-catalog/storage"
	"iphone-price-catalog/utils"
)

var (
	outPath string
	csvPath string
)

var rootCmd = &cobra.Command{
	Use:   "iphone-price-catalog",
	Short: "Build the iPhone price catalog for the six Japanese carriers",
	Long: `Fetches the iPhone pages of Rakuten Mobile, ahamo, UQ mobile, au,
SoftBank and docomo, normalises every offer into one schema and writes the
catalog document. A run always covers all carriers; carriers or pages that
fail are logged and left out of the catalog.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&outPath, "out", "", "catalog JSON path (overrides OUTPUT_JSON)")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "also export items as CSV to this path (overrides OUTPUT_CSV)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type extractorFactory func(*rules.Ruleset, *utils.Logger) (scraper.Extractor, error)

var factories = map[models.Carrier]extractorFactory{
	models.Rakuten:  func(rs *rules.Ruleset, l *utils.Logger) (scraper.Extractor, error) { return rakuten.New(rs, l) },
	models.Ahamo:    func(rs *rules.Ruleset, l *utils.Logger) (scraper.Extractor, error) { return ahamo.New(rs, l) },
	models.UQMobile: func(rs *rules.Ruleset, l *utils.Logger) (scraper.Extractor, error) { return uq.New(rs, l) },
	models.AU:       func(rs *rules.Ruleset, l *utils.Logger) (scraper.Extractor, error) { return au.New(rs, l) },
	models.SoftBank: func(rs *rules.Ruleset, l *utils.Logger) (scraper.Extractor, error) { return softbank.New(rs, l) },
	models.Docomo:   func(rs *rules.Ruleset, l *utils.Logger) (scraper.Extractor, error) { return docomo.New(rs, l) },
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if outPath != "" {
		cfg.JSONOutputPath = outPath
	}
	if csvPath != "" {
		cfg.CSVOutputPath = csvPath
	}
	logger := utils.NewLogger(cfg.LogLevel)

	logger.Info("=== iPhone price catalog starting ===")
	logger.Info("Config: fetch mode %s | timeout %ds | min interval %dms | json %s",
		cfg.FetchMode, cfg.FetchTimeoutSec, cfg.MinFetchIntervalMs, cfg.JSONOutputPath)

	f, closeFetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("could not start fetcher: %w", err)
	}
	defer closeFetcher()

	extractors, err := newExtractors(logger)
	if err != nil {
		return err
	}

	results := scraper.NewRunner(logger, extractors...).Run(cmd.Context(), f)

	cleaner := services.NewCleaner(logger)
	byCarrier := make(map[models.Carrier][]*models.PricedItem, len(results))
	for _, r := range results {
		byCarrier[r.Carrier] = cleaner.Clean(r.Carrier, r.Items)
	}
	catalog := services.BuildCatalog(time.Now(), byCarrier)
	logger.Info("Catalog built: %d items (updated_at %s)", len(catalog.Items), catalog.UpdatedAt)

	if err := storage.NewJSONWriter(cfg.JSONOutputPath).Write(catalog); err != nil {
		logger.Error("JSON write failed: %v", err)
	} else {
		logger.Info("Catalog saved to %s", cfg.JSONOutputPath)
	}

	if cfg.CSVOutputPath != "" {
		writeCSV(cfg.CSVOutputPath, catalog, logger)
	}

	reportItems := catalog.Items
	if cfg.PostgresEnabled {
		if items, ok := mirrorToPostgres(cfg, catalog, logger); ok {
			reportItems = items
		}
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(reportItems))

	fmt.Printf("  Done. Catalog → %s\n\n", cfg.JSONOutputPath)
	return nil
}

// newFetcher builds the page fetcher chain: the configured backend, an
// optional page recorder and an optional throttle.
func newFetcher(cfg *config.Config, logger *utils.Logger) (fetcher.Fetcher, func(), error) {
	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second

	var f fetcher.Fetcher
	closeFn := func() {}

	switch cfg.FetchMode {
	case config.FetchModeHTTP:
		f = fetcher.NewHTTP(timeout, cfg.UserAgent)
	case config.FetchModeChrome:
		b, err := fetcher.NewBrowser(fetcher.BrowserOptions{
			ChromeBin: cfg.ChromeBin,
			UserAgent: cfg.UserAgent,
			Timeout:   timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		f = b
		closeFn = func() {
			if err := b.Close(); err != nil {
				logger.Warn("[fetcher] Browser close: %v", err)
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown FETCH_MODE %q", cfg.FetchMode)
	}

	if cfg.DumpDir != "" {
		rec, err := fetcher.NewRecorder(f, cfg.DumpDir, logger)
		if err != nil {
			logger.Warn("[fetcher] Page dumps disabled: %v", err)
		} else {
			f = rec
		}
	}
	if cfg.MinFetchIntervalMs > 0 {
		f = fetcher.NewThrottled(f, cfg.MinFetchIntervalMs)
	}
	return f, closeFn, nil
}

func newExtractors(logger *utils.Logger) ([]scraper.Extractor, error) {
	r, err := rules.Load()
	if err != nil {
		return nil, err
	}

	extractors := make([]scraper.Extractor, 0, len(models.CarrierOrder))
	for _, carrier := range models.CarrierOrder {
		rs, err := r.For(carrier)
		if err != nil {
			return nil, err
		}
		ex, err := factories[carrier](rs, logger)
		if err != nil {
			return nil, fmt.Errorf("%s extractor: %w", carrier, err)
		}
		extractors = append(extractors, ex)
	}
	return extractors, nil
}

func writeCSV(path string, catalog *models.Catalog, logger *utils.Logger) {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		return
	}
	defer w.Close()

	if err := w.Write(catalog); err != nil {
		logger.Error("CSV write failed: %v", err)
		return
	}
	logger.Info("Items exported to %s", path)
}

// mirrorToPostgres replaces the mirrored snapshot and reads it back for the
// insight report. ok is false when the database could not be used.
func mirrorToPostgres(cfg *config.Config, catalog *models.Catalog, logger *utils.Logger) ([]*models.PricedItem, bool) {
	pgWriter, err := storage.NewPostgresWriter(cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: cfg.PostgresMaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return nil, false
	}
	defer pgWriter.Close()

	if err := pgWriter.Write(catalog); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
		return nil, false
	}
	logger.Info("Catalog mirrored to PostgreSQL (run %s)", pgWriter.RunID())

	items, err := pgWriter.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch items from DB for insights: %v", err)
		return nil, false
	}
	return items, true
}
