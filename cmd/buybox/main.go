package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecomlab/go-buybox/batch"
	"github.com/ecomlab/go-buybox/config"
	"github.com/ecomlab/go-buybox/models"
	"github.com/ecomlab/go-buybox/ratelimit"
	"github.com/ecomlab/go-buybox/report"
	"github.com/ecomlab/go-buybox/spapi"
)

func main() {
	defaultCfg := config.DefaultConfig()
	workersDefault := defaultCfg.Workers
	if value, ok, err := config.EnvInt("BUYBOX_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid BUYBOX_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("BUYBOX_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("BUYBOX_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	asinList := flag.String("asins", "", "Comma-separated ASINs to analyze")
	inputFile := flag.String("input", "", "File with one ASIN per line (overrides -asins)")
	marketplace := flag.String("marketplace", "US", "Marketplace country code (US, CA, GB)")
	workers := flag.Int("workers", workersDefault, "Number of concurrent pipeline workers")
	maxAttempts := flag.Int("max-attempts", defaultCfg.MaxAttempts, "Attempts per lookup including retries")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff.Milliseconds()), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax.Milliseconds()), "Maximum retry backoff (milliseconds)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, xlsx, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	asins, err := collectASINs(*asinList, *inputFile)
	if err != nil {
		slog.Error("reading identifiers", slog.Any("error", err))
		os.Exit(1)
	}
	if len(asins) == 0 {
		fmt.Fprintln(os.Stderr, "no ASINs given: use -asins or -input")
		os.Exit(2)
	}

	cfg := defaultCfg
	cfg.Workers = *workers
	cfg.MaxAttempts = *maxAttempts
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if cfg.Marketplace, err = config.MarketplaceByCountry(*marketplace); err != nil {
		slog.Error("invalid marketplace", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	credentials, err := spapi.NewEnvCredentials()
	if err != nil {
		slog.Error("loading credentials", slog.Any("error", err))
		os.Exit(1)
	}

	limiter, err := ratelimit.NewLimiter(map[ratelimit.Category]ratelimit.BucketConfig{
		ratelimit.CategoryCatalog: {RatePerSecond: cfg.CatalogRatePerSecond, Burst: cfg.CatalogBurst},
		ratelimit.CategoryPricing: {RatePerSecond: cfg.PricingRatePerSecond, Burst: cfg.PricingBurst},
	})
	if err != nil {
		slog.Error("initialising rate limiter", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := spapi.NewClient(cfg, credentials, limiter)
	if err != nil {
		slog.Error("initialising API client", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing in-flight lookups")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(client.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	runner, err := batch.NewRunner(client,
		batch.WithWorkers(cfg.Workers),
		batch.WithProgress(func(completed, total int, latest models.AnalysisResult) {
			status := "ok"
			if latest.Failure != nil {
				status = string(latest.Failure.Kind)
			}
			fmt.Printf("[%d/%d] %s %s\n", completed, total, latest.ProductID, status)
		}),
	)
	if err != nil {
		slog.Error("initialising runner", slog.Any("error", err))
		os.Exit(1)
	}

	startTime := time.Now()
	results, err := runner.Run(ctx, asins)
	if err != nil {
		slog.Error("analysis failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Write(results); err != nil {
		slog.Error("writing results", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	report.RenderSummaryTable(os.Stdout, results)
	printSummary(batch.Summarize(runner.RunID(), results, startTime, time.Now()), cfg.OutputFile)
}

func collectASINs(asinList, inputFile string) ([]string, error) {
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()

		var asins []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			asins = append(asins, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		return asins, nil
	}

	var asins []string
	for _, raw := range strings.Split(asinList, ",") {
		if asin := strings.TrimSpace(raw); asin != "" {
			asins = append(asins, asin)
		}
	}
	return asins, nil
}

func createWriter(format, filename string) (report.Writer, error) {
	switch format {
	case "csv":
		return report.NewCSVWriter(filename)
	case "json":
		return report.NewJSONWriter(filename)
	case "xlsx":
		return report.NewExcelWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return report.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(summary models.RunSummary, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Analysis complete")
	fmt.Printf("  Run ID:        %s\n", summary.RunID)
	fmt.Printf("  Identifiers:   %d\n", summary.TotalCount)
	fmt.Printf("  Succeeded:     %d\n", summary.SuccessCount)
	fmt.Printf("  Failed:        %d\n", summary.FailureCount)
	if len(summary.FailuresBy) > 0 {
		fmt.Printf("  Failure kinds: %v\n", summary.FailuresBy)
	}
	fmt.Printf("  Duration:      %v\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
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
