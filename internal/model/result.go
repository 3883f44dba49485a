package model

import "time"

// ForecastPoint is one simulated future month.
type ForecastPoint struct {
	Time  time.Time `json:"timestamp"`
	Close float64   `json:"predicted_close"`
}

// ForecastPath is the simulated future price path. Base is the model's
// single-step prediction from the last known feature row.
type ForecastPath struct {
	Base   float64         `json:"base"`
	Points []ForecastPoint `json:"points"`
}

// MetricBundle summarizes backtest accuracy. A nil pointer means the metric
// is undefined for this test set; Notes says why.
type MetricBundle struct {
	MAE                 float64  `json:"mae"`
	RMSE                float64  `json:"rmse"`
	MAPE                *float64 `json:"mape"`
	DirectionalAccuracy *float64 `json:"directional_accuracy"`
	Notes               []string `json:"notes,omitempty"`
}

// BacktestPoint pairs an actual test close with the model's prediction.
type BacktestPoint struct {
	Time      time.Time `json:"timestamp"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// RunResult is everything one pipeline run produces.
type RunResult struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Market     string          `json:"market"`
	Model      string          `json:"model"`
	Dataset    Dataset         `json:"dataset"`
	Dropped    int             `json:"dropped_rows"`
	TrainSize  int             `json:"train_size"`
	TestSize   int             `json:"test_size"`
	Backtest   []BacktestPoint `json:"backtest"`
	Metrics    MetricBundle    `json:"metrics"`
	Forecast   ForecastPath    `json:"forecast"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}
