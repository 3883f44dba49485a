package collector

import (
	"context"
	"math"
	"time"

	"CryptoForecast/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64 // first close
	Months int
	Start  time.Time
	Series *model.PriceSeries // returned as-is when set
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchMonthly(_ context.Context, symbol, market string) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	if m.Series != nil {
		return *m.Series, nil
	}
	return generateMockSeries(symbol, market, m.Price, m.Months, m.Start), nil
}

// generateMockSeries produces a deterministic upward-trending wave.
func generateMockSeries(symbol, market string, basePrice float64, count int, start time.Time) model.PriceSeries {
	if basePrice <= 0 {
		basePrice = 100
	}
	if count <= 0 {
		count = 48
	}
	if start.IsZero() {
		start = time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC)
	}
	bars := make([]model.OHLCV, count)
	for i := range bars {
		p := basePrice * (1 + 0.02*float64(i)) * (1 + 0.1*math.Sin(float64(i)/2))
		bars[i] = model.OHLCV{
			Time:   monthEnd(start.AddDate(0, i, -start.Day()+1)),
			Close:  p,
			Volume: 1_000_000 + float64(i%6)*25_000,
		}
	}
	s := toSeries(symbol, market, bars)
	s.FetchedAt = time.Time{}
	return s
}
