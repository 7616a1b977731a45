package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"canvas-finder/internal/canvas"
	"canvas-finder/internal/config"
	"canvas-finder/internal/export"
	"canvas-finder/internal/fetch"
	"canvas-finder/internal/httpx"
	"canvas-finder/internal/logging"
	"canvas-finder/internal/metrics"
	"canvas-finder/internal/pipeline"
	"canvas-finder/internal/selector"
	"canvas-finder/internal/sftpclient"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitNoSelection = 3
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("canvasfind", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		envPath     = fs.String("env", ".env", "dotenv file with TOKEN, CANVAS_API_URL, COURSE_IDS, COURSE_NAMES")
		doSelect    = fs.Bool("select", false, "pipe the listing into SELECTOR_CMD and print the chosen item's url")
		outPath     = fs.String("out", "", "also write the listing to this file")
		uploadSFTP  = fs.Bool("sftp", false, "upload the -out file via SFTP")
		metricsFile = fs.String("metrics-file", "", "write prometheus metrics to this file after the run")
		verbose     = fs.Bool("v", false, "verbose diagnostics")
		timeout     = fs.Duration("timeout", 2*time.Minute, "overall deadline for fetching")
	)
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	log := logging.New(stderr, *verbose)
	defer log.Sync()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return exitConfig
	}
	if *uploadSFTP && *outPath == "" {
		log.Error("invalid configuration", zap.Error(errors.New("-sftp requires -out")))
		return exitConfig
	}

	m := metrics.New()
	defer writeMetrics(log, m, *metricsFile)

	client, err := canvas.New(cfg.BaseURL, cfg.Token, canvas.Options{
		Timeout: cfg.RequestTimeout,
		PerPage: cfg.PerPage,
		Metrics: m,
		Retry: httpx.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			Retry5xx:    true,
		},
	})
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return exitConfig
	}

	p := pipeline.Pipeline{
		Aggregator: fetch.Aggregator{
			Fetcher:     fetch.NewFetcher(client, log, m),
			MaxInFlight: cfg.MaxInFlight,
		},
		Log: log,
	}

	fetchCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	records, sum, err := p.Collect(fetchCtx, cfg.Courses)
	if err != nil {
		log.Error("run aborted, nothing written", zap.Error(err))
		if ctx.Err() != nil {
			return exitInterrupted
		}
		return exitFailure
	}
	log.Debug("fetched",
		zap.Int("records", sum.Lines),
		zap.Int("courses", sum.Courses),
		zap.Int("failed_courses", sum.FailedCourses),
		zap.Int("failed_modules", sum.FailedModules),
	)

	if *outPath != "" {
		if err := writeListing(*outPath, records); err != nil {
			log.Error("write listing", zap.String("path", *outPath), zap.Error(err))
			return exitFailure
		}
		if *uploadSFTP {
			if err := publish(ctx, cfg, *outPath); err != nil {
				log.Error("sftp upload", zap.Error(err))
				return exitFailure
			}
			log.Debug("uploaded listing", zap.String("host", cfg.SFTPHost), zap.String("dir", cfg.SFTPDir))
		}
	}

	if *doSelect {
		return selectURL(ctx, log, cfg.SelectorCmd, records, stdout)
	}

	if _, err := export.Emit(export.Lines(records), stdout); err != nil {
		log.Error("write listing", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

func selectURL(ctx context.Context, log *zap.Logger, cmd []string, records []export.FlatRecord, stdout io.Writer) int {
	line, err := selector.Select(ctx, cmd, export.Lines(records))
	if errors.Is(err, selector.ErrNoSelection) {
		return exitNoSelection
	}
	if err != nil {
		log.Error("selector failed", zap.Strings("cmd", cmd), zap.Error(err))
		return exitFailure
	}

	url, err := selector.URLOf(line)
	if err != nil {
		log.Error("selected line has no url", zap.String("line", line), zap.Error(err))
		return exitFailure
	}
	fmt.Fprintln(stdout, url)
	return exitOK
}

func writeListing(path string, records []export.FlatRecord) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := export.Emit(export.Lines(records), f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func publish(ctx context.Context, cfg *config.Config, path string) error {
	upCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	return sftpclient.UploadFile(upCtx, sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		KnownHostsFile:        cfg.SFTPKnownHosts,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
	}, path, filepath.Base(path))
}

func writeMetrics(log *zap.Logger, m *metrics.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		log.Warn("write metrics", zap.String("path", path), zap.Error(err))
	}
}
