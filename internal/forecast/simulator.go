// Package forecast projects a future price path from a fitted model.
//
// The path is a stochastic drift extrapolation for visualization: the model
// predicts once from the last known feature row and every later month is the
// previous value scaled by (1 + drift), drift ~ Normal(mean, sd). Indicators
// are not recomputed for simulated months.
package forecast

import (
	"math/rand/v2"

	"CryptoForecast/internal/feature"
	"CryptoForecast/internal/model"
	"CryptoForecast/internal/predictor"
)

// Defaults for the drift distribution.
const (
	DefaultDriftMean = 0.01
	DefaultDriftSD   = 0.05
)

// Simulator holds the simulation parameters. Seed only drives drift sampling,
// independent of the model's own seed.
type Simulator struct {
	Months    int
	DriftMean float64
	DriftSD   float64
	Seed      uint64
}

// Validate checks the horizon and drift spread.
func (s Simulator) Validate() error {
	if s.Months <= 0 {
		return model.ConfigErrorf("forecast", "forecast_months", "must be positive, got %d", s.Months)
	}
	if s.DriftSD < 0 {
		return model.ConfigErrorf("forecast", "drift_sd", "must be >= 0, got %v", s.DriftSD)
	}
	return nil
}

// Simulate predicts the base value from last and compounds Months drift
// steps. Point i (1-based) is dated i calendar months after last.Time.
func (s Simulator) Simulate(m predictor.Regressor, last model.FeatureRow, windows []int) (model.ForecastPath, error) {
	if err := s.Validate(); err != nil {
		return model.ForecastPath{}, err
	}
	pred, err := m.Predict([][]float64{last.Features(windows)})
	if err != nil {
		return model.ForecastPath{}, err
	}
	if len(pred) != 1 {
		return model.ForecastPath{}, model.ComputationErrorf("forecast", "model", "expected 1 prediction, got %d", len(pred))
	}

	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0xda3e39cb94b95bdb))
	path := model.ForecastPath{Base: pred[0], Points: make([]model.ForecastPoint, s.Months)}
	value := pred[0]
	for i := 1; i <= s.Months; i++ {
		drift := s.DriftMean + s.DriftSD*rng.NormFloat64()
		value *= 1 + drift
		path.Points[i-1] = model.ForecastPoint{
			Time:  feature.AddMonths(last.Time, i),
			Close: value,
		}
	}
	return path, nil
}
