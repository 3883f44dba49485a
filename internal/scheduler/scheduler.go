package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"CryptoForecast/internal/collector"
	"CryptoForecast/internal/metrics"
	"CryptoForecast/internal/model"
	"CryptoForecast/internal/notifier"
	"CryptoForecast/internal/pipeline"
	"CryptoForecast/internal/recorder"
	"CryptoForecast/internal/report"
)

// Sender delivers a notification.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the forecast job on a cron schedule and on demand.
// Exporter, Metrics and Notifier are optional.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Pipeline  *pipeline.Pipeline
	Exporter  *report.Exporter
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Notifier  Sender
	Ctx       context.Context

	log zerolog.Logger
	mu  sync.Mutex // one job at a time
	wg  sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, p *pipeline.Pipeline, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(&log)),
		)),
		Collector: col,
		Pipeline:  p,
		Recorder:  rec,
		Ctx:       ctx,
		log:       log,
	}
}

// Register schedules the forecast job.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.forecastTask); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs, including those
// started by RunAsync.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// RunAsync runs the job in the background. Failures are logged by RunNow.
func (s *Scheduler) RunAsync(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.RunNow(ctx)
	}()
}

func (s *Scheduler) forecastTask() {
	_, _ = s.RunNow(s.Ctx)
}

// RunNow executes the full job: collect, run the pipeline, export, record,
// update metrics and notify. A failed run is logged and reported; export,
// record and notify failures are logged and do not fail the run.
func (s *Scheduler) RunNow(ctx context.Context) (*model.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol := s.Collector.Symbol
	s.log.Info().Str("symbol", symbol).Msg("running forecast task")

	series, err := s.Collector.Collect(ctx)
	if err == nil {
		var res *model.RunResult
		if res, err = s.Pipeline.Run(ctx, series); err == nil {
			s.publish(ctx, series, res)
			return res, nil
		}
	}

	s.log.Error().Err(err).Str("symbol", symbol).Msg("forecast failed")
	if s.Metrics != nil {
		s.Metrics.ObserveFailure(symbol)
	}
	s.trySend(ctx, notifier.FormatError(symbol, err))
	return nil, err
}

func (s *Scheduler) publish(ctx context.Context, series model.PriceSeries, res *model.RunResult) {
	if s.Exporter != nil {
		paths, err := s.Exporter.Export(series, res)
		if err != nil {
			s.log.Error().Err(err).Msg("export artifacts")
		} else {
			s.log.Info().Strs("files", paths).Msg("artifacts exported")
		}
	}
	if err := s.Recorder.RecordRun(res); err != nil {
		s.log.Error().Err(err).Str("run_id", res.ID).Msg("record run")
	}
	if s.Metrics != nil {
		s.Metrics.Observe(res)
	}
	s.trySend(ctx, notifier.FormatRunSummary(res))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/forecast", "预测":
		// success and failure are both reported through the notifier
		_, _ = s.RunNow(ctx)
		return ""
	case "/metrics", "指标":
		last, err := s.Recorder.LastRun(s.Collector.Symbol)
		if errors.Is(err, recorder.ErrNoRuns) {
			return "暂无运行记录，发送 /forecast 立即运行"
		}
		if err != nil {
			s.log.Error().Err(err).Msg("load last run")
			return notifier.FormatError(s.Collector.Symbol, err)
		}
		return notifier.FormatLastRun(last)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
