package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoForecast/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const avPayload = `{
  "Meta Data": {"1. Information": "Monthly Prices and Volumes for Digital Currency"},
  "Time Series (Digital Currency Monthly)": {
    "2024-03-31": {"1a. open (USD)": "61130.98", "4a. close (USD)": "71280.01", "5. volume": "2000"},
    "2024-01-31": {"1a. open (USD)": "42283.58", "4a. close (USD)": "42580.00", "5. volume": "1000"},
    "2024-02-29": {"1a. open (USD)": "42580.00", "4a. close (USD)": "61130.98", "5. volume": "1500"}
  }
}`

func TestAlphaVantageFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DIGITAL_CURRENCY_MONTHLY", r.URL.Query().Get("function"))
		assert.Equal(t, "BTC", r.URL.Query().Get("symbol"))
		assert.Equal(t, "USD", r.URL.Query().Get("market"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Write([]byte(avPayload))
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher(srv.URL, "key", "", time.Second)
	s, err := f.FetchMonthly(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{42580.00, 61130.98, 71280.01}, s.Closes())
	assert.Equal(t, date(2024, time.February, 29), s.Observations[1].Time)
	assert.Equal(t, 1500.0, s.Observations[1].Volume)
	assert.NoError(t, s.Validate())
}

func TestAlphaVantageFetcher_NewFieldNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Time Series (Digital Currency Monthly)": {
			"2024-01-31": {"4. close": "2.5", "5. volume": "10"}}}`))
	}))
	defer srv.Close()

	s, err := NewAlphaVantageFetcher(srv.URL, "k", "", 0).FetchMonthly(context.Background(), "ETH", "EUR")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, s.Closes())
}

func TestAlphaVantageFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", 200, `{"Error Message": "Invalid API call"}`, "Invalid API call"},
		{"rate limit", 200, `{"Note": "5 calls per minute"}`, "rate limited"},
		{"information", 200, `{"Information": "premium endpoint"}`, "premium endpoint"},
		{"empty", 200, `{}`, "no data"},
		{"status", 500, `oops`, "status 500"},
		{"bad number", 200, `{"Time Series (Digital Currency Monthly)": {"2024-01-31": {"4. close": "x", "5. volume": "1"}}}`, "close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := NewAlphaVantageFetcher(srv.URL, "k", "", time.Second).FetchMonthly(context.Background(), "BTC", "USD")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYahooFetcher(t *testing.T) {
	jan := date(2024, time.January, 1).Unix()
	feb := date(2024, time.February, 1).Unix()
	mar := date(2024, time.March, 1).Unix()
	midMar := date(2024, time.March, 18).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/BTC-USD", r.URL.Path)
		assert.Equal(t, "1mo", r.URL.Query().Get("interval"))
		json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []any{map[string]any{
					"timestamp": []int64{jan, feb, mar, midMar},
					"indicators": map[string]any{"quote": []any{map[string]any{
						"close":  []any{42580.0, nil, 69000.0, 71000.0},
						"volume": []any{1000.0, nil, 300.0, 50.0},
					}}},
				}},
				"error": nil,
			},
		})
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	s, err := f.FetchMonthly(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len(), "null bar skipped, partial month merged")
	assert.Equal(t, date(2024, time.January, 31), s.Observations[0].Time)
	assert.Equal(t, date(2024, time.March, 31), s.Observations[1].Time)
	assert.Equal(t, 71000.0, s.Observations[1].Close)
	assert.Equal(t, 350.0, s.Observations[1].Volume)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()
	_, err := NewYahooFetcher(srv.URL, "", time.Second).FetchMonthly(context.Background(), "NOPE", "USD")
	assert.ErrorContains(t, err, "No data found")
}

func TestYahooSymbol(t *testing.T) {
	f := NewYahooFetcher("", "", 0)
	assert.Equal(t, "BTC-USD", f.yahooSymbol("BTC", "USD"))
	assert.Equal(t, "ETH-EUR", f.yahooSymbol("ETH-EUR", "USD"))
	assert.Equal(t, "^GSPC", f.yahooSymbol("SPX500", "USD"))
}

func TestCSVFetcher(t *testing.T) {
	s, err := NewCSVFetcher("testdata/btc_monthly.csv").FetchMonthly(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, 12, s.Len(), "non-numeric trailing row dropped")
	assert.Equal(t, 23139.28, s.Observations[0].Close)
	assert.Equal(t, date(2023, time.December, 31), s.Observations[11].Time)
	assert.NoError(t, s.Validate())
}

func TestCSVFetcher_DailyRowsFoldIntoMonths(t *testing.T) {
	s, err := NewCSVFetcher("testdata/daily.csv").FetchMonthly(context.Background(), "ETH", "USD")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 2283.0, s.Observations[0].Close)
	assert.Equal(t, 300.0, s.Observations[0].Volume)
	assert.Equal(t, 3384.0, s.Observations[1].Close)
	assert.Equal(t, 700.0, s.Observations[1].Volume)
}

func TestCSVFetcher_MissingFile(t *testing.T) {
	_, err := NewCSVFetcher("testdata/absent.csv").FetchMonthly(context.Background(), "BTC", "USD")
	assert.ErrorContains(t, err, "open csv")
}

func TestNormalize(t *testing.T) {
	obs := []model.PriceObservation{
		{Time: date(2024, 3, 31), Close: 3},
		{Time: date(2024, 1, 31), Close: 1},
		{Time: date(2024, 2, 29), Close: 2},
	}
	out, err := Normalize(obs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out[0].Close)
	assert.Equal(t, 3.0, out[2].Close)
	assert.Equal(t, 3.0, obs[0].Close, "input untouched")

	obs = append(obs, model.PriceObservation{Time: date(2024, 1, 31), Close: 9})
	_, err = Normalize(obs)
	assert.True(t, errors.Is(err, model.ErrData))
}

func TestMockFetcher(t *testing.T) {
	m := &MockFetcher{Price: 50, Months: 30}
	s, err := m.FetchMonthly(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, 30, s.Len())
	assert.Equal(t, 50.0, s.Observations[0].Close)
	assert.Equal(t, date(2020, time.January, 31), s.Observations[0].Time)
	assert.Equal(t, date(2020, time.February, 29), s.Observations[1].Time)
	assert.NoError(t, s.Validate())

	again, _ := m.FetchMonthly(context.Background(), "BTC", "USD")
	assert.Equal(t, s, again)
}

func fixedSeries() model.PriceSeries {
	return model.PriceSeries{
		Symbol: "BTC",
		Market: "USD",
		Observations: []model.PriceObservation{
			{Time: date(2024, 1, 31), Close: 1, Volume: 10},
			{Time: date(2024, 2, 29), Close: 2, Volume: 20},
		},
	}
}

func TestCachedFetcher_MissThenStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	series := fixedSeries()
	data, err := json.Marshal(series)
	require.NoError(t, err)

	key := "cryptoforecast:monthly:mock:BTC:USD"
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(data), time.Hour).SetVal("OK")

	c := &CachedFetcher{Inner: &MockFetcher{Series: &series}, Client: db, TTL: time.Hour, Log: zerolog.Nop()}
	got, err := c.FetchMonthly(context.Background(), "btc", "usd")
	require.NoError(t, err)
	assert.Equal(t, series.Closes(), got.Closes())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "mock+redis", c.Name())
}

func TestCachedFetcher_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	series := fixedSeries()
	data, _ := json.Marshal(series)

	key := "cryptoforecast:monthly:mock:BTC:USD"
	mock.ExpectGet(key).SetVal(string(data))

	inner := &MockFetcher{Err: errors.New("inner must not be called")}
	c := &CachedFetcher{Inner: inner, Client: db, TTL: time.Hour, Log: zerolog.Nop()}
	got, err := c.FetchMonthly(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, series.Closes(), got.Closes())
	assert.True(t, series.Observations[1].Time.Equal(got.Observations[1].Time))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedFetcher_RedisDownFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	series := fixedSeries()
	data, _ := json.Marshal(series)

	key := "cryptoforecast:monthly:mock:BTC:USD"
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, string(data), time.Hour).SetErr(errors.New("connection refused"))

	c := &CachedFetcher{Inner: &MockFetcher{Series: &series}, Client: db, TTL: time.Hour, Log: zerolog.Nop()}
	got, err := c.FetchMonthly(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestCollector_Collect(t *testing.T) {
	series := fixedSeries()
	series.Observations[0], series.Observations[1] = series.Observations[1], series.Observations[0]
	c := NewCollector(&MockFetcher{Series: &series}, "BTC", "USD", zerolog.Nop())

	got, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Closes())

	bad := fixedSeries()
	bad.Observations[1].Close = -1
	_, err = NewCollector(&MockFetcher{Series: &bad}, "BTC", "USD", zerolog.Nop()).Collect(context.Background())
	assert.True(t, errors.Is(err, model.ErrData))

	_, err = NewCollector(&MockFetcher{Err: errors.New("boom")}, "BTC", "USD", zerolog.Nop()).Collect(context.Background())
	assert.ErrorContains(t, err, "from mock")
}
