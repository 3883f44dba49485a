package calculator

import "gonum.org/v1/gonum/floats"

// RSI computes the Relative Strength Index with a simple trailing mean of
// gains and losses over window deltas.
//
// The first price has no prior move and counts as a zero delta, so RSI shares
// the moving average warm-up: indices < window-1 are invalid.
// avgLoss == 0 saturates at 100; avgGain == avgLoss == 0 is undefined.
func RSI(prices []float64, window int) ([]Value, error) {
	if err := checkWindow("rsi_window", prices, window); err != nil {
		return nil, err
	}
	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	out := make([]Value, len(prices))
	for i := window - 1; i < len(prices); i++ {
		avgGain := floats.Sum(gains[i-window+1:i+1]) / float64(window)
		avgLoss := floats.Sum(losses[i-window+1:i+1]) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) Value {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return Value{}
	case avgLoss == 0:
		return some(100)
	}
	rs := avgGain / avgLoss
	return some(100.0 - 100.0/(1.0+rs))
}
