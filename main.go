package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churnapi/config"
	"churnapi/db"
	chttp "churnapi/http"
	"churnapi/logging"
	"churnapi/ml"
	"churnapi/monitoring"
	"churnapi/predict"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "churn api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logging
	logger, level, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir})
	if err != nil {
		return err
	}
	defer closeLog()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Load the model. A failure leaves the service running but not ready.
	var opts []ml.StoreOption
	if cfg.Cache.Size > 0 {
		cache, err := ml.NewInferenceCache(cfg.Cache.Size)
		if err != nil {
			return fmt.Errorf("create inference cache: %w", err)
		}
		opts = append(opts, ml.WithCache(cache))
	}
	store := ml.NewStore(logger, opts...)
	if err := store.Load(cfg.Model.Path, cfg.Model.Version); err != nil {
		logger.Error("service starting without a model", zap.Error(err))
	}
	service := predict.NewService(store, logger)

	// 4. Metrics, live feed and prediction log
	metrics := monitoring.NewRegistry()
	feed := monitoring.NewLiveFeed(metrics, 5*time.Second, logger)
	apiOpts := []chttp.APIOption{chttp.WithLiveFeed(feed)}

	var predictionLog *db.PredictionLog
	if cfg.Storage.PredictionLogPath != "" {
		predictionLog, err = db.Open(cfg.Storage.PredictionLogPath, 1024, logger)
		if err != nil {
			logger.Warn("prediction log disabled", zap.String("path", cfg.Storage.PredictionLogPath), zap.Error(err))
			predictionLog = nil
		} else {
			defer predictionLog.Close()
			apiOpts = append(apiOpts, chttp.WithPredictionLog(predictionLog))
		}
	}

	api := chttp.NewAPI(chttp.APIConfig{
		ModelVersion:   cfg.Model.Version,
		APIVersion:     cfg.Server.APIVersion,
		MetricsEnabled: cfg.Metrics.Enabled,
	}, service, metrics, logger, apiOpts...)

	serverCfg := chttp.DefaultServerConfig()
	serverCfg.Addr = cfg.Addr()
	serverCfg.RateLimitRPS = cfg.Server.RateLimitRPS
	if len(cfg.Server.AllowedOrigins) > 0 {
		serverCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	server := chttp.NewServer(serverCfg, api)

	// 5. Run everything until a signal arrives
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return server.Start() })
	g.Go(func() error { return feed.Run(gctx) })
	if predictionLog != nil {
		g.Go(func() error { return predictionLog.Run(gctx) })
	}
	g.Go(func() error {
		watcher := config.NewWatcher(cfgPath, logger, func(next *config.Config) {
			lvl, err := logging.ParseLevel(next.Log.Level)
			if err != nil {
				logger.Warn("ignoring invalid log level", zap.String("level", next.Log.Level))
				return
			}
			if lvl != level.Level() {
				level.SetLevel(lvl)
				logger.Info("log level changed", zap.String("level", lvl.String()))
			}
		})
		if err := watcher.Run(gctx); err != nil {
			// the service runs fine without hot reload
			logger.Warn("config watcher stopped", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	logger.Info("churn prediction API started",
		zap.String("addr", cfg.Addr()),
		zap.String("model_version", cfg.Model.Version),
		zap.Bool("model_ready", store.Ready()),
		zap.String("model_kind", store.Info().Kind),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("exiting")
	return nil
}
