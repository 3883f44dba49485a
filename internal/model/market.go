package model

import (
	"math"
	"time"
)

// OHLCV represents a single vendor bar before normalization.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceObservation is one monthly close/volume point.
type PriceObservation struct {
	Time   time.Time `json:"timestamp"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds monthly observations sorted ascending by time.
type PriceSeries struct {
	Symbol       string             `json:"symbol"`
	Market       string             `json:"market"`
	Observations []PriceObservation `json:"observations"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Observations) }

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Close
	}
	return out
}

// Last returns the most recent observation.
func (s PriceSeries) Last() (PriceObservation, bool) {
	if len(s.Observations) == 0 {
		return PriceObservation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// Validate checks the series invariants: non-empty, strictly increasing
// timestamps, positive finite closes and non-negative volumes.
func (s PriceSeries) Validate() error {
	if len(s.Observations) == 0 {
		return DataErrorf("series", "observations", "series is empty")
	}
	nanCloses := 0
	for _, o := range s.Observations {
		if math.IsNaN(o.Close) {
			nanCloses++
		}
	}
	if nanCloses == len(s.Observations) {
		return DataErrorf("series", "close", "every close is NaN")
	}
	for i, o := range s.Observations {
		if i > 0 && !o.Time.After(s.Observations[i-1].Time) {
			return DataErrorf("series", "timestamp",
				"timestamps must be strictly increasing and unique (index %d: %s after %s)",
				i, o.Time.Format("2006-01-02"), s.Observations[i-1].Time.Format("2006-01-02"))
		}
		if math.IsNaN(o.Close) || math.IsInf(o.Close, 0) || o.Close <= 0 {
			return DataErrorf("series", "close", "close must be a positive number (index %d: %v)", i, o.Close)
		}
		if math.IsNaN(o.Volume) || math.IsInf(o.Volume, 0) || o.Volume < 0 {
			return DataErrorf("series", "volume", "volume must be >= 0 (index %d: %v)", i, o.Volume)
		}
	}
	return nil
}
