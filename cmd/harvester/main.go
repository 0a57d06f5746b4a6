package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icaro1518/ml-discounts/auth"
	"github.com/icaro1518/ml-discounts/config"
	"github.com/icaro1518/ml-discounts/harvest"
	"github.com/icaro1518/ml-discounts/mlapi"
	"github.com/icaro1518/ml-discounts/models"
	"github.com/icaro1518/ml-discounts/table"
)

func main() {
	// Secrets such as ML_CLIENT_SECRET live in .env during local runs;
	// absence is fine in CI and containers.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	workersDefault := defaultCfg.Workers
	if value, ok, err := config.EnvInt("HARVESTER_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid HARVESTER_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	dataDirDefault := defaultCfg.DataDir
	if value, ok := config.EnvString("HARVESTER_DATA_DIR"); ok {
		dataDirDefault = value
	}
	secretsDirDefault := defaultCfg.SecretsDir
	if value, ok := config.EnvString("HARVESTER_SECRETS_DIR"); ok {
		secretsDirDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("HARVESTER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	mode := flag.String("mode", "items", "Operation: items, sellers, ratings, compile, exchange, or refresh")
	country := flag.String("country", defaultCfg.CountrySite, "Country site id (e.g. MCO, MLA, MLB)")
	dataDir := flag.String("data-dir", dataDirDefault, "Directory for harvested CSV/JSONL files")
	secretsDir := flag.String("secrets-dir", secretsDirDefault, "Directory holding the token files")
	initOffset := flag.Int("init-offset", 0, "First search offset (items mode)")
	finalOffset := flag.Int("final-offset", 1000, "Last search offset, exclusive (items mode)")
	maxOffset := flag.Int("max-offset", defaultCfg.MaxOffset, "Pagination cap enforced before any request")
	ids := flag.String("ids", "", "Comma-separated ids, or @file with one id per line (sellers/ratings modes)")
	prefix := flag.String("prefix", "data_items", "Filename prefix to concatenate (compile mode)")
	workers := flag.Int("workers", workersDefault, "Concurrent fetches for seller/rating batches")
	rps := flag.Float64("rps", defaultCfg.RequestsPerSecond, "Outgoing requests per second, 0 disables pacing")
	failFast := flag.Bool("fail-fast", false, "Fail the whole batch on the first per-id error")
	perItemFiles := flag.Bool("per-item-files", false, "Write one ratings file per item instead of one batch file")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv or jsonl")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Marketplace API base URL")
	tokenURL := flag.String("token-url", defaultCfg.TokenURL, "OAuth token endpoint")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.TokenURL = *tokenURL
	cfg.CountrySite = *country
	cfg.DataDir = *dataDir
	cfg.SecretsDir = *secretsDir
	cfg.Workers = *workers
	cfg.MaxOffset = *maxOffset
	cfg.RequestsPerSecond = *rps
	cfg.FailFast = *failFast
	cfg.PerItemFiles = *perItemFiles
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	store := auth.NewStore(cfg.SecretsDir)

	switch *mode {
	case "exchange", "refresh":
		if err := runTokenMode(ctx, cfg, store, *mode); err != nil {
			slog.Error("token operation failed", slog.String("mode", *mode), slog.Any("error", err))
			os.Exit(1)
		}
		return
	case "compile":
		if err := runCompile(cfg, *prefix); err != nil {
			slog.Error("compile failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	client := mlapi.NewClient(cfg.BaseURL, cfg.Timeout, store)
	client.SetRateLimit(cfg.RequestsPerSecond)

	metrics := harvest.NewMetrics()
	client.SetRecorder(metrics)
	session := harvest.NewSession(cfg, client, metrics, logger)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting harvest",
		slog.String("mode", *mode),
		slog.String("site", cfg.CountrySite),
		slog.Int("workers", cfg.Workers),
	)

	result, err := runHarvest(ctx, session, *mode, *ids, *initOffset, *finalOffset)
	if err != nil {
		slog.Error("harvest failed", slog.String("mode", *mode), slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(*mode, result)
}

func runHarvest(ctx context.Context, session *harvest.Session, mode, rawIDs string, initOffset, finalOffset int) (*models.HarvestResult, error) {
	switch mode {
	case "items":
		catalog, err := harvest.NewCatalog(session)
		if err != nil {
			return nil, err
		}
		return harvest.NewItemHarvester(session, catalog).HarvestRange(ctx, initOffset, finalOffset)
	case "sellers":
		idList, err := parseIDs(rawIDs)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		combined, err := harvest.NewSellerHarvester(session).FetchBatch(ctx, idList)
		if err != nil {
			return nil, err
		}
		return batchResult(start, len(idList), combined.Len()), nil
	case "ratings":
		idList, err := parseIDs(rawIDs)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		combined, err := harvest.NewRatingHarvester(session).FetchBatch(ctx, idList)
		if err != nil {
			return nil, err
		}
		return batchResult(start, len(idList), combined.Len()), nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", mode)
	}
}

func runTokenMode(ctx context.Context, cfg *config.Config, store *auth.Store, mode string) error {
	clientSecret := os.Getenv("ML_CLIENT_SECRET")
	appID := os.Getenv("ML_APP_ID")
	if clientSecret == "" || appID == "" {
		return fmt.Errorf("ML_CLIENT_SECRET and ML_APP_ID must be set")
	}

	authority := auth.NewAuthority(cfg.TokenURL, store, cfg.Timeout)

	if mode == "exchange" {
		code := os.Getenv("ML_AUTH_CODE")
		redirectURI := os.Getenv("ML_REDIRECT_URI")
		if code == "" || redirectURI == "" {
			return fmt.Errorf("ML_AUTH_CODE and ML_REDIRECT_URI must be set for exchange")
		}
		if _, err := authority.Exchange(ctx, clientSecret, appID, code, redirectURI); err != nil {
			return err
		}
		slog.Info("token exchange complete", slog.String("secrets_dir", cfg.SecretsDir))
		return nil
	}

	refreshToken, err := store.RefreshToken()
	if err != nil {
		return err
	}
	if _, err := authority.Refresh(ctx, clientSecret, appID, refreshToken); err != nil {
		return err
	}
	slog.Info("access token refreshed", slog.String("secrets_dir", cfg.SecretsDir))
	return nil
}

func runCompile(cfg *config.Config, prefix string) error {
	compiled, err := table.Compile(cfg.DataDir, prefix)
	if err != nil {
		return err
	}
	if compiled.Len() == 0 {
		slog.Warn("no rows found for prefix", slog.String("prefix", prefix))
		return nil
	}
	// Prefixing the output keeps it outside the prefix*.csv glob, so a
	// rerun does not compile the compiled file into itself.
	out := filepath.Join(cfg.DataDir, "compiled_"+prefix+".csv")
	if err := compiled.WriteCSV(out); err != nil {
		return err
	}
	slog.Info("compiled",
		slog.String("file", out),
		slog.Int("rows", compiled.Len()),
	)
	return nil
}

// parseIDs accepts a comma-separated list or @path pointing at a file with
// one id per line. Blank entries are skipped.
func parseIDs(raw string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("-ids is required for this mode")
	}

	var fields []string
	if strings.HasPrefix(raw, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return nil, fmt.Errorf("read ids file: %w", err)
		}
		fields = strings.Split(string(data), "\n")
	} else {
		fields = strings.Split(raw, ",")
	}

	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			ids = append(ids, f)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}

func batchResult(start time.Time, requested, rows int) *models.HarvestResult {
	return &models.HarvestResult{
		StartTime:    start,
		EndTime:      time.Now(),
		PagesFetched: requested,
		RowCount:     rows,
	}
}

func printSummary(mode string, result *models.HarvestResult) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Harvest complete (%s)\n", mode)
	fmt.Printf("  Rows:          %d\n", result.RowCount)
	fmt.Printf("  Pages fetched: %d\n", result.PagesFetched)
	if result.PagesEmpty > 0 {
		fmt.Printf("  Empty pages:   %d\n", result.PagesEmpty)
	}
	if result.FilesWritten > 0 {
		fmt.Printf("  Files written: %d\n", result.FilesWritten)
	}
	if len(result.FailedIDs) > 0 {
		fmt.Printf("  Failed ids:    %v\n", result.FailedIDs)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
