// Package evaluation scores backtest predictions against actual closes.
package evaluation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"CryptoForecast/internal/model"
)

func check(actual, predicted []float64) error {
	if len(actual) == 0 {
		return model.DataErrorf("evaluation", "actual", "no observations to score")
	}
	if len(actual) != len(predicted) {
		return model.DataErrorf("evaluation", "predicted", "%d predictions for %d actuals", len(predicted), len(actual))
	}
	return nil
}

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) (float64, error) {
	if err := check(actual, predicted); err != nil {
		return 0, err
	}
	return floats.Distance(actual, predicted, 1) / float64(len(actual)), nil
}

// RMSE is the root mean squared error.
func RMSE(actual, predicted []float64) (float64, error) {
	if err := check(actual, predicted); err != nil {
		return 0, err
	}
	return floats.Distance(actual, predicted, 2) / math.Sqrt(float64(len(actual))), nil
}

// MAPE is the mean absolute percentage error, in percent. A zero actual makes
// it undefined and is reported as a computation error.
func MAPE(actual, predicted []float64) (float64, error) {
	if err := check(actual, predicted); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range actual {
		if actual[i] == 0 {
			return 0, model.ComputationErrorf("evaluation", "actual", "MAPE divides by actual, which is zero at index %d", i)
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
	}
	return sum / float64(len(actual)) * 100, nil
}

// DirectionalAccuracy is the share of consecutive steps where the predicted
// move has the same sign as the actual move (flat counts as its own sign).
// Fewer than two points yield ErrInsufficientData.
func DirectionalAccuracy(actual, predicted []float64) (float64, error) {
	if err := check(actual, predicted); err != nil {
		return 0, err
	}
	if len(actual) < 2 {
		return 0, &model.Error{Kind: model.ErrInsufficientData, Component: "evaluation", Input: "actual",
			Msg: fmt.Sprintf("directional accuracy needs at least 2 points, got %d", len(actual))}
	}
	hits := 0
	for i := 1; i < len(actual); i++ {
		if sign(actual[i]-actual[i-1]) == sign(predicted[i]-predicted[i-1]) {
			hits++
		}
	}
	return float64(hits) / float64(len(actual)-1), nil
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Evaluate computes the full bundle. MAPE and directional accuracy are left
// nil with a note when undefined; mismatched or empty inputs are an error.
func Evaluate(actual, predicted []float64) (model.MetricBundle, error) {
	var b model.MetricBundle
	var err error
	if b.MAE, err = MAE(actual, predicted); err != nil {
		return model.MetricBundle{}, err
	}
	if b.RMSE, err = RMSE(actual, predicted); err != nil {
		return model.MetricBundle{}, err
	}

	if v, err := MAPE(actual, predicted); err == nil {
		b.MAPE = &v
	} else if errors.Is(err, model.ErrComputation) {
		b.Notes = append(b.Notes, "mape undefined: "+err.Error())
	} else {
		return model.MetricBundle{}, err
	}

	if v, err := DirectionalAccuracy(actual, predicted); err == nil {
		b.DirectionalAccuracy = &v
	} else if errors.Is(err, model.ErrInsufficientData) {
		b.Notes = append(b.Notes, "directional_accuracy undefined: "+err.Error())
	} else {
		return model.MetricBundle{}, err
	}
	return b, nil
}
