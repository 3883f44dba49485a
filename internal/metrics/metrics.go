package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"CryptoForecast/internal/model"
)

// Metrics holds the Prometheus metrics for forecast runs.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal   *prometheus.CounterVec // labels: symbol, status
	RunDuration prometheus.Histogram

	// Backtest accuracy of the latest successful run
	MAE                 *prometheus.GaugeVec
	RMSE                *prometheus.GaugeVec
	MAPE                *prometheus.GaugeVec
	DirectionalAccuracy *prometheus.GaugeVec

	ForecastFinal *prometheus.GaugeVec
	DatasetRows   *prometheus.GaugeVec
	LastSuccess   *prometheus.GaugeVec
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"symbol"})
	}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoforecast_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"symbol", "status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptoforecast_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		MAE:                 gauge("cryptoforecast_backtest_mae", "Backtest mean absolute error"),
		RMSE:                gauge("cryptoforecast_backtest_rmse", "Backtest root mean squared error"),
		MAPE:                gauge("cryptoforecast_backtest_mape_percent", "Backtest mean absolute percentage error"),
		DirectionalAccuracy: gauge("cryptoforecast_backtest_directional_accuracy", "Share of test steps with the right direction"),
		ForecastFinal:       gauge("cryptoforecast_forecast_final_close", "Last close of the simulated path"),
		DatasetRows:         gauge("cryptoforecast_dataset_rows", "Rows in the feature table"),
		LastSuccess:         gauge("cryptoforecast_last_success_timestamp_seconds", "Unix time of the last successful run"),
	}
	m.Registry.MustRegister(
		m.RunsTotal, m.RunDuration,
		m.MAE, m.RMSE, m.MAPE, m.DirectionalAccuracy,
		m.ForecastFinal, m.DatasetRows, m.LastSuccess,
	)
	return m
}

// Observe records a successful run. Undefined metrics are removed rather
// than left at a stale value.
func (m *Metrics) Observe(res *model.RunResult) {
	sym := res.Symbol
	m.RunsTotal.WithLabelValues(sym, "success").Inc()
	m.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())

	m.MAE.WithLabelValues(sym).Set(res.Metrics.MAE)
	m.RMSE.WithLabelValues(sym).Set(res.Metrics.RMSE)
	if res.Metrics.MAPE != nil {
		m.MAPE.WithLabelValues(sym).Set(*res.Metrics.MAPE)
	} else {
		m.MAPE.DeleteLabelValues(sym)
	}
	if res.Metrics.DirectionalAccuracy != nil {
		m.DirectionalAccuracy.WithLabelValues(sym).Set(*res.Metrics.DirectionalAccuracy)
	} else {
		m.DirectionalAccuracy.DeleteLabelValues(sym)
	}
	if n := len(res.Forecast.Points); n > 0 {
		m.ForecastFinal.WithLabelValues(sym).Set(res.Forecast.Points[n-1].Close)
	}
	m.DatasetRows.WithLabelValues(sym).Set(float64(res.Dataset.Len()))
	m.LastSuccess.WithLabelValues(sym).Set(float64(res.FinishedAt.Unix()))
}

// ObserveFailure counts a failed run.
func (m *Metrics) ObserveFailure(symbol string) {
	m.RunsTotal.WithLabelValues(symbol, "failure").Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
	log  zerolog.Logger
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log:  log,
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
