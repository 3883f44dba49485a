package calculator

import "gonum.org/v1/gonum/stat"

// BandWidth is the number of standard deviations between the middle band and
// each outer band.
const BandWidth = 2.0

// Bands holds the three Bollinger series, index-aligned with the input.
type Bands struct {
	MA    []Value
	Upper []Value
	Lower []Value
}

// BollingerBands computes the trailing mean and sample standard deviation
// (n-1 denominator) over window prices, with bands at ±2 std.
// A window of 1 has no sample std, so every value is invalid.
func BollingerBands(prices []float64, window int) (Bands, error) {
	if err := checkWindow("bb_window", prices, window); err != nil {
		return Bands{}, err
	}
	b := Bands{
		MA:    make([]Value, len(prices)),
		Upper: make([]Value, len(prices)),
		Lower: make([]Value, len(prices)),
	}
	if window < 2 {
		return b, nil
	}
	for i := window - 1; i < len(prices); i++ {
		ma, std := stat.MeanStdDev(prices[i-window+1:i+1], nil)
		b.MA[i] = some(ma)
		b.Upper[i] = some(ma + BandWidth*std)
		b.Lower[i] = some(ma - BandWidth*std)
	}
	return b, nil
}
