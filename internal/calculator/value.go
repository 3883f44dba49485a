// Package calculator computes rolling indicators over a close-price series.
//
// Each function returns one Value per input price. Positions without a full
// window of history, or where the statistic is undefined (0/0 RSI, sample std
// of a single point), are returned with Valid=false instead of NaN.
package calculator

import "CryptoForecast/internal/model"

// Value is a float that may not be defined yet.
type Value struct {
	V     float64
	Valid bool
}

func some(v float64) Value { return Value{V: v, Valid: true} }

// CountValid returns how many values are defined.
func CountValid(vals []Value) int {
	n := 0
	for _, v := range vals {
		if v.Valid {
			n++
		}
	}
	return n
}

func checkWindow(name string, prices []float64, window int) error {
	if window <= 0 {
		return model.ConfigErrorf("calculator", name, "window must be positive, got %d", window)
	}
	if len(prices) < window {
		return model.DataErrorf("calculator", name, "need at least %d prices, got %d", window, len(prices))
	}
	return nil
}
