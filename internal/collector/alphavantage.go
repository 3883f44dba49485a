package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"CryptoForecast/internal/model"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageFetcher implements Fetcher using the DIGITAL_CURRENCY_MONTHLY endpoint.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewAlphaVantageFetcher creates a new fetcher with optional proxy support.
func NewAlphaVantageFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *AlphaVantageFetcher {
	if baseURL == "" {
		baseURL = alphaVantageURL
	}
	return &AlphaVantageFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

// avResponse is the monthly digital currency payload. Bars are keyed by date.
type avResponse struct {
	Series       map[string]map[string]string `json:"Time Series (Digital Currency Monthly)"`
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
}

func (f *AlphaVantageFetcher) FetchMonthly(ctx context.Context, symbol, market string) (model.PriceSeries, error) {
	q := url.Values{}
	q.Set("function", "DIGITAL_CURRENCY_MONTHLY")
	q.Set("symbol", symbol)
	q.Set("market", market)
	q.Set("apikey", f.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.PriceSeries{}, fmt.Errorf("alphavantage: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload avResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage decode: %w", err)
	}
	switch {
	case payload.ErrorMessage != "":
		return model.PriceSeries{}, fmt.Errorf("alphavantage api error: %s", payload.ErrorMessage)
	case payload.Note != "":
		return model.PriceSeries{}, fmt.Errorf("alphavantage rate limited: %s", payload.Note)
	case len(payload.Series) == 0 && payload.Information != "":
		return model.PriceSeries{}, fmt.Errorf("alphavantage: %s", payload.Information)
	case len(payload.Series) == 0:
		return model.PriceSeries{}, fmt.Errorf("alphavantage: no data returned")
	}

	closeKeys := []string{"4a. close (" + market + ")", "4. close"}
	bars := make([]model.OHLCV, 0, len(payload.Series))
	for date, fields := range payload.Series {
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return model.PriceSeries{}, model.DataErrorf("collector.alphavantage", "date", "bad date %q: %v", date, err)
		}
		c, err := pickFloat(fields, closeKeys...)
		if err != nil {
			return model.PriceSeries{}, model.DataErrorf("collector.alphavantage", "close", "%s: %v", date, err)
		}
		v, err := pickFloat(fields, "5. volume")
		if err != nil {
			return model.PriceSeries{}, model.DataErrorf("collector.alphavantage", "volume", "%s: %v", date, err)
		}
		bars = append(bars, model.OHLCV{Time: t, Close: c, Volume: v})
	}
	return toSeries(symbol, market, aggregateMonthly(bars)), nil
}

// pickFloat parses the first present key.
func pickFloat(fields map[string]string, keys ...string) (float64, error) {
	for _, k := range keys {
		if s, ok := fields[k]; ok {
			return strconv.ParseFloat(s, 64)
		}
	}
	return 0, fmt.Errorf("missing field %q", keys[0])
}
