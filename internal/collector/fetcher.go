package collector

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"CryptoForecast/internal/model"
)

// Fetcher defines the interface for fetching monthly market data.
type Fetcher interface {
	FetchMonthly(ctx context.Context, symbol, market string) (model.PriceSeries, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// monthEnd returns midnight UTC on the last day of t's month.
func monthEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// aggregateMonthly folds bars into one bar per calendar month, dated at
// month end. Close is the month's last close and volume the sum.
func aggregateMonthly(bars []model.OHLCV) []model.OHLCV {
	if len(bars) == 0 {
		return nil
	}
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var monthly []model.OHLCV
	for _, b := range sorted {
		key := monthEnd(b.Time)
		if n := len(monthly); n > 0 && monthly[n-1].Time.Equal(key) {
			m := &monthly[n-1]
			if b.High > m.High {
				m.High = b.High
			}
			if b.Low < m.Low {
				m.Low = b.Low
			}
			m.Close = b.Close
			m.Volume += b.Volume
			continue
		}
		b.Time = key
		monthly = append(monthly, b)
	}
	return monthly
}

func toSeries(symbol, market string, bars []model.OHLCV) model.PriceSeries {
	s := model.PriceSeries{
		Symbol:       symbol,
		Market:       market,
		Observations: make([]model.PriceObservation, len(bars)),
		FetchedAt:    time.Now().UTC(),
	}
	for i, b := range bars {
		s.Observations[i] = model.PriceObservation{Time: b.Time, Close: b.Close, Volume: b.Volume}
	}
	return s
}

// Normalize sorts observations ascending by time. Two observations with the
// same timestamp are a DataError; they are never silently merged.
func Normalize(obs []model.PriceObservation) ([]model.PriceObservation, error) {
	out := make([]model.PriceObservation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	for i := 1; i < len(out); i++ {
		if out[i].Time.Equal(out[i-1].Time) {
			return nil, model.DataErrorf("collector", "timestamp", "duplicate observation at %s",
				out[i].Time.Format("2006-01-02"))
		}
	}
	return out, nil
}
