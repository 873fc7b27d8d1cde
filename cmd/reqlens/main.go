package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reqlens/reqlens/internal/config"
	"github.com/reqlens/reqlens/internal/dashboard"
	"github.com/reqlens/reqlens/internal/engine"
	"github.com/reqlens/reqlens/internal/middleware"
	"github.com/reqlens/reqlens/internal/output"
	"github.com/reqlens/reqlens/internal/report"
	"github.com/reqlens/reqlens/internal/threshold"
	"github.com/reqlens/reqlens/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	args := os.Args[1:]

	if config.WantsExampleConfig(args) {
		if err := config.WriteExample(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	eng := engine.New(engine.Config{
		RingCapacity:       cfg.RingCapacity,
		SketchSigFigs:      cfg.SketchSigFigs,
		MaxTrackMs:         cfg.MaxTrackMs,
		EnableQueryMetrics: cfg.EnableQueryMetrics,
	})
	svc := report.NewService(eng)

	dash := dashboard.New(dashboard.Config{
		BasePath:     cfg.Dashboard.BasePath,
		LiveInterval: cfg.Dashboard.LiveInterval,
	}, svc, eng,
		dashboard.WithLogger(logger),
		dashboard.WithThresholds(thresholds),
	)

	mwOpts := []middleware.Option{
		middleware.WithLogger(logger),
		middleware.WithMaxEventsPerSec(cfg.MaxEventsPerSec),
	}
	if cfg.Tracing.Enabled() {
		mwOpts = append(mwOpts, middleware.WithTracer(provider.Tracer()))
	}

	mux := http.NewServeMux()
	registerDemoRoutes(mux, eng, cfg.EnableQueryMetrics)
	app := middleware.Handler(eng, mux, mwOpts...)

	root := http.NewServeMux()
	root.Handle(strings.TrimSuffix(cfg.Dashboard.BasePath, "/")+"/", dash.Handler())
	root.Handle("/", app)

	server := &http.Server{
		Addr:              cfg.Dashboard.Addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving demo app and dashboard",
			zap.String("addr", cfg.Dashboard.Addr),
			zap.String("dashboard", cfg.Dashboard.BasePath+"/"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Demo.Traffic {
		gen := newTrafficGenerator(cfg, logger)
		go gen.run(ctx)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}

	endpoints, _, err := svc.Endpoints(report.SortCount, report.OrderDesc, report.Page{})
	if err != nil {
		return err
	}
	output.PrintReport(os.Stdout, svc.Summary(), endpoints)
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "", "info":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unsupported log level %q", level)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
