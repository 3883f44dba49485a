// Package pipeline runs one end-to-end forecast: features, chronological
// backtest, evaluation and the simulated future path.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"CryptoForecast/internal/backtest"
	"CryptoForecast/internal/config"
	"CryptoForecast/internal/evaluation"
	"CryptoForecast/internal/feature"
	"CryptoForecast/internal/model"
	"CryptoForecast/internal/predictor"
)

// Pipeline is immutable after New and safe to reuse across runs.
type Pipeline struct {
	cfg     config.Pipeline
	kind    predictor.Kind
	builder *feature.Builder
	log     zerolog.Logger
	now     func() time.Time
}

// New resolves the model kind once; an unknown model_type is logged and
// replaced by the default backend.
func New(cfg config.Pipeline, log zerolog.Logger) *Pipeline {
	log = log.With().Str("component", "pipeline").Logger()
	return &Pipeline{
		cfg:     cfg,
		kind:    predictor.Resolve(cfg.ModelType, log),
		builder: feature.NewBuilder(cfg.FeatureParams(), log),
		log:     log,
		now:     time.Now,
	}
}

// Kind is the backend this pipeline fits.
func (p *Pipeline) Kind() predictor.Kind { return p.kind }

// Run executes every stage on series. ctx is checked between stages.
func (p *Pipeline) Run(ctx context.Context, series model.PriceSeries) (*model.RunResult, error) {
	res := &model.RunResult{
		ID:        uuid.NewString(),
		Symbol:    series.Symbol,
		Market:    series.Market,
		Model:     p.kind.String(),
		StartedAt: p.now().UTC(),
	}
	log := p.log.With().Str("run_id", res.ID).Str("symbol", series.Symbol).Logger()

	// Step 1: feature table
	ds, rep, err := p.builder.Build(series)
	if err != nil {
		return nil, err
	}
	res.Dataset = ds
	res.Dropped = rep.Dropped
	log.Info().Int("rows", ds.Len()).Int("dropped", rep.Dropped).Msg("features built")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 2: chronological split
	train, test, err := backtest.Split(ds, p.cfg.TestSizeMonths)
	if err != nil {
		return nil, err
	}
	res.TrainSize, res.TestSize = train.Len(), test.Len()

	// Step 3: fit on train, predict the held-out months
	m := predictor.New(p.kind, p.cfg.ModelOptions())
	Xtr, ytr := train.Matrix()
	if err := m.Fit(Xtr, ytr); err != nil {
		return nil, err
	}
	Xte, yte := test.Matrix()
	pred, err := m.Predict(Xte)
	if err != nil {
		return nil, err
	}
	res.Backtest = make([]model.BacktestPoint, test.Len())
	for i, r := range test.Rows {
		res.Backtest[i] = model.BacktestPoint{Time: r.Time, Actual: yte[i], Predicted: pred[i]}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 4: score the backtest
	res.Metrics, err = evaluation.Evaluate(yte, pred)
	if err != nil {
		return nil, err
	}
	for _, note := range res.Metrics.Notes {
		log.Warn().Str("note", note).Msg("metric undefined")
	}
	log.Info().Float64("mae", res.Metrics.MAE).Float64("rmse", res.Metrics.RMSE).
		Int("train", res.TrainSize).Int("test", res.TestSize).Msg("backtest scored")

	// Step 5: optionally refit on every row before projecting
	if p.cfg.RefitFull {
		m = predictor.New(p.kind, p.cfg.ModelOptions())
		X, y := ds.Matrix()
		if err := m.Fit(X, y); err != nil {
			return nil, err
		}
		log.Debug().Int("rows", ds.Len()).Msg("model refit on full dataset")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 6: simulate the future path from the last known row
	res.Forecast, err = p.cfg.Simulator().Simulate(m, ds.Rows[ds.Len()-1], ds.Windows)
	if err != nil {
		return nil, err
	}

	res.FinishedAt = p.now().UTC()
	log.Info().Int("months", len(res.Forecast.Points)).Float64("base", res.Forecast.Base).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).Msg("forecast complete")
	return res, nil
}
