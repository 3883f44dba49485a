package scheduler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoForecast/internal/collector"
	"CryptoForecast/internal/config"
	"CryptoForecast/internal/metrics"
	"CryptoForecast/internal/pipeline"
	"CryptoForecast/internal/recorder"
	"CryptoForecast/internal/report"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher) (*Scheduler, *fakeSender, string) {
	t.Helper()
	cfg := config.Default().Pipeline
	cfg.Symbol = "BTC"
	cfg.ForecastMonths = 6
	cfg.ForestTrees = 10

	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	col := collector.NewCollector(fetcher, "BTC", "USD", zerolog.Nop())
	s := NewScheduler(context.Background(), col, pipeline.New(cfg, zerolog.Nop()), rec, zerolog.Nop())
	out := filepath.Join(dir, "out")
	s.Exporter = &report.Exporter{Dir: out, HistoryMonths: cfg.VisualizationHistoryMonths}
	s.Metrics = metrics.NewMetrics()
	sender := &fakeSender{}
	s.Notifier = sender
	return s, sender, out
}

func TestRunNow_FullJob(t *testing.T) {
	s, sender, out := newTestScheduler(t, &collector.MockFetcher{Price: 100, Months: 36})

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Forecast.Points, 6)

	_, err = os.Stat(filepath.Join(out, "btc_monthly_forecast.csv"))
	assert.NoError(t, err)

	last, err := s.Recorder.LastRun("BTC")
	require.NoError(t, err)
	assert.Equal(t, res.ID, last.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.RunsTotal.WithLabelValues("BTC", "success")))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "BTC/USD")
}

func TestRunNow_FetchFailure(t *testing.T) {
	s, sender, _ := newTestScheduler(t, &collector.MockFetcher{Err: errors.New("upstream down")})

	_, err := s.RunNow(context.Background())
	assert.ErrorContains(t, err, "upstream down")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.RunsTotal.WithLabelValues("BTC", "failure")))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "upstream down")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunNow_FailureLoggedWithoutNotifier(t *testing.T) {
	var logs syncBuffer
	col := collector.NewCollector(&collector.MockFetcher{Err: errors.New("upstream down")}, "BTC", "USD", zerolog.Nop())
	s := NewScheduler(context.Background(), col, pipeline.New(config.Default().Pipeline, zerolog.Nop()),
		recorder.NewNoopRecorder(), zerolog.New(&logs))

	_, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), "upstream down")
	assert.Contains(t, logs.String(), "forecast failed")
}

func TestRunAsync_StopWaitsForJob(t *testing.T) {
	s, sender, _ := newTestScheduler(t, &collector.MockFetcher{Price: 100, Months: 36})
	s.Start()
	s.RunAsync(context.Background())
	s.Stop()

	last, err := s.Recorder.LastRun("BTC")
	require.NoError(t, err, "run must be recorded before Stop returns")
	assert.Equal(t, 6, last.ForecastPoints)
	sender.mu.Lock()
	assert.Len(t, sender.sent, 1)
	sender.mu.Unlock()
}

func TestHandleCommand(t *testing.T) {
	s, sender, _ := newTestScheduler(t, &collector.MockFetcher{Price: 100, Months: 36})
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/metrics"), "/forecast")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/help")

	assert.Empty(t, s.HandleCommand(ctx, "/forecast"))
	assert.Len(t, sender.sent, 1)

	reply := s.HandleCommand(ctx, " /METRICS ")
	assert.Contains(t, reply, "BTC/USD")
	assert.Contains(t, reply, "MAE")
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{})
	require.NoError(t, s.Register("0 0 9 1 * *"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}
