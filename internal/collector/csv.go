package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"CryptoForecast/internal/model"
)

// CSVFetcher reads a yfinance-style export: SkipRows header lines followed by
// date,close,high,low,open,volume records. Rows whose close or volume is not
// numeric are dropped. Daily rows are folded into months.
type CSVFetcher struct {
	Path     string
	SkipRows int
}

// NewCSVFetcher uses the three header rows yfinance writes.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path, SkipRows: 3}
}

func (f *CSVFetcher) Name() string { return "csv" }

var csvDateLayouts = []string{time.DateOnly, "2006-01-02 15:04:05-07:00", time.DateTime, time.RFC3339}

func (f *CSVFetcher) FetchMonthly(ctx context.Context, symbol, market string) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	bars, err := parseCSV(file, f.SkipRows)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if len(bars) == 0 {
		return model.PriceSeries{}, model.DataErrorf("collector.csv", f.Path, "no numeric rows")
	}
	return toSeries(symbol, market, aggregateMonthly(bars)), nil
}

func parseCSV(r io.Reader, skip int) ([]model.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars []model.OHLCV
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line < skip {
			continue
		}
		if len(rec) < 6 {
			return nil, model.DataErrorf("collector.csv", "record", "line %d has %d fields, want 6", line+1, len(rec))
		}
		t, ok := parseDate(rec[0])
		if !ok {
			return nil, model.DataErrorf("collector.csv", "date", "line %d: unparseable date %q", line+1, rec[0])
		}
		c, errC := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		v, errV := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
		if errC != nil || errV != nil {
			continue
		}
		bars = append(bars, model.OHLCV{Time: t, Close: c, Volume: v})
	}
	return bars, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
