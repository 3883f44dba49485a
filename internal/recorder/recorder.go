package recorder

import (
	"errors"
	"time"

	"CryptoForecast/internal/model"
)

// ErrNoRuns is returned by LastRun when nothing was recorded for the symbol.
var ErrNoRuns = errors.New("no recorded runs")

// RunSummary is the persisted headline of one pipeline run.
type RunSummary struct {
	ID                  string
	Symbol              string
	Market              string
	Model               string
	DatasetRows         int
	TrainSize           int
	TestSize            int
	MAE                 float64
	RMSE                float64
	MAPE                *float64
	DirectionalAccuracy *float64
	ForecastBase        float64
	ForecastFinal       float64
	ForecastEnd         time.Time
	FinishedAt          time.Time
	BacktestPoints      int
	ForecastPoints      int
}

// Recorder persists historical runs for analysis.
type Recorder interface {
	RecordRun(res *model.RunResult) error
	LastRun(symbol string) (*RunSummary, error)
	Close() error
}
