package calculator

import (
	"gonum.org/v1/gonum/stat"

	"CryptoForecast/internal/model"
)

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, model.ConfigErrorf("calculator", "period", "must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, model.DataErrorf("calculator", "prices", "%d prices for SMA period %d", len(prices), period)
	}
	return stat.Mean(prices[len(prices)-period:], nil), nil
}

// MovingAverage returns the trailing arithmetic mean over window prices for
// every index. The first window-1 values are invalid.
func MovingAverage(prices []float64, window int) ([]Value, error) {
	if err := checkWindow("ma_window", prices, window); err != nil {
		return nil, err
	}
	out := make([]Value, len(prices))
	for i := window - 1; i < len(prices); i++ {
		out[i] = some(stat.Mean(prices[i-window+1:i+1], nil))
	}
	return out, nil
}
