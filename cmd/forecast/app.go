package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"CryptoForecast/internal/collector"
	"CryptoForecast/internal/config"
	"CryptoForecast/internal/logger"
	"CryptoForecast/internal/metrics"
	"CryptoForecast/internal/notifier"
	"CryptoForecast/internal/pipeline"
	"CryptoForecast/internal/recorder"
	"CryptoForecast/internal/report"
	"CryptoForecast/internal/scheduler"
)

type options struct {
	configPath string
	symbol     string
	market     string
	model      string
	provider   string
	noExport   bool
	notify     bool
	runOnStart bool
}

// app holds the wired components and the resources to release.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	sched    *scheduler.Scheduler
	notifier *notifier.TelegramNotifier
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
}

func loadConfig(opts options) (*config.Config, error) {
	if v := os.Getenv("CONFIG_PATH"); v != "" && opts.configPath == "configs/config.yaml" {
		opts.configPath = v
	}
	cfg, err := config.Load(opts.configPath, func(c *config.Config) {
		if opts.symbol != "" {
			c.Pipeline.Symbol = opts.symbol
		}
		if opts.market != "" {
			c.Pipeline.Market = opts.market
		}
		if opts.model != "" {
			c.Pipeline.ModelType = opts.model
		}
		if opts.provider != "" {
			c.DataSource.Provider = opts.provider
		}
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newFetcher picks the provider and, when configured, puts the Redis cache in
// front of it. The returned closer is nil without a cache.
func newFetcher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (collector.Fetcher, func() error) {
	ds := cfg.DataSource
	var f collector.Fetcher
	switch ds.Provider {
	case "yahoo":
		f = collector.NewYahooFetcher(ds.BaseURL, ds.Proxy, ds.Timeout)
	case "csv":
		f = collector.NewCSVFetcher(ds.CSVPath)
	case "mock":
		f = &collector.MockFetcher{}
	default:
		f = collector.NewAlphaVantageFetcher(ds.BaseURL, ds.APIKey, ds.Proxy, ds.Timeout)
	}
	if cfg.Cache.Addr == "" {
		return f, nil
	}
	rdb, err := collector.NewRedisClient(ctx, cfg.Cache.Addr, cfg.Cache.DB)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, fetching without cache")
		return f, nil
	}
	return &collector.CachedFetcher{Inner: f, Client: rdb, TTL: cfg.Cache.TTL, Log: log}, rdb.Close
}

func newApp(ctx context.Context, opts options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log)
	a := &app{cfg: cfg, log: log}

	fetcher, closeCache := newFetcher(ctx, cfg, log)
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			a.closers = append(a.closers, sr.Close)
		}
	}

	p := cfg.Pipeline
	col := collector.NewCollector(fetcher, p.Symbol, p.Market, log)
	a.sched = scheduler.NewScheduler(ctx, col, pipeline.New(p, log), rec, log)
	if !opts.noExport {
		a.sched.Exporter = &report.Exporter{Dir: cfg.Output.Dir, HistoryMonths: p.VisualizationHistoryMonths}
	}
	if cfg.Telegram.Enabled {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
	}
	return a, nil
}

func runOnce(ctx context.Context, opts options, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	if opts.notify && a.notifier != nil {
		a.sched.Notifier = a.notifier
	}

	res, err := a.sched.RunNow(ctx)
	if err != nil {
		return err
	}
	return report.WriteSummary(out, res)
}

func serve(ctx context.Context, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.NewMetrics()
	a.sched.Metrics = m
	srv := metrics.NewServer(a.cfg.Metrics.Addr, m, a.log)
	srv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(shutdownCtx)
	}()

	if a.notifier != nil {
		a.sched.Notifier = a.notifier
		go a.notifier.StartPolling(ctx, a.sched.HandleCommand)
		a.log.Info().Msg("telegram polling started")
	}

	if err := a.sched.Register(a.cfg.Schedule.Cron); err != nil {
		return err
	}
	a.sched.Start()
	defer a.sched.Stop()

	if opts.runOnStart {
		a.log.Info().Msg("run-on-start enabled, executing forecast now")
		a.sched.RunAsync(ctx)
	}

	a.log.Info().Str("symbol", a.cfg.Pipeline.Symbol).Str("cron", a.cfg.Schedule.Cron).
		Msg("forecast service running, press Ctrl+C to stop")
	<-ctx.Done()
	a.log.Info().Msg("shutdown signal received, stopping")
	return nil
}
