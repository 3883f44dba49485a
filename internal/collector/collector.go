package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"CryptoForecast/internal/model"
)

// Collector fetches, normalizes and validates a monthly series.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
	Market  string
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol, market string, log zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Market: market, log: log}
}

// Collect returns a validated, ascending monthly series.
func (c *Collector) Collect(ctx context.Context) (model.PriceSeries, error) {
	s, err := c.Fetcher.FetchMonthly(ctx, c.Symbol, c.Market)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch monthly %s/%s from %s: %w", c.Symbol, c.Market, c.Fetcher.Name(), err)
	}
	if s.Observations, err = Normalize(s.Observations); err != nil {
		return model.PriceSeries{}, err
	}
	if err := s.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	last, _ := s.Last()
	c.log.Info().Str("source", c.Fetcher.Name()).Int("observations", s.Len()).
		Time("from", s.Observations[0].Time).Time("to", last.Time).Msg("series collected")
	return s, nil
}
