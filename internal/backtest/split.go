// Package backtest partitions a feature table chronologically.
package backtest

import "CryptoForecast/internal/model"

// Split returns the last testSize rows as the test set and every preceding
// row as the train set. Rows are never shuffled, and the input is not modified.
func Split(ds model.Dataset, testSize int) (train, test model.Dataset, err error) {
	if testSize <= 0 {
		return model.Dataset{}, model.Dataset{}, model.ConfigErrorf("backtest", "test_size_months",
			"must be positive, got %d", testSize)
	}
	if testSize >= ds.Len() {
		return model.Dataset{}, model.Dataset{}, model.ConfigErrorf("backtest", "test_size_months",
			"%d leaves no training rows in a dataset of %d", testSize, ds.Len())
	}
	cut := ds.Len() - testSize
	return ds.Slice(0, cut), ds.Slice(cut, ds.Len()), nil
}
