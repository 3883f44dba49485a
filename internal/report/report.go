// Package report writes run artifacts for downstream plotting and review.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"CryptoForecast/internal/model"
)

const dateLayout = "2006-01-02"

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteFeatures writes the feature table with one column per feature.
func WriteFeatures(w io.Writer, ds model.Dataset) error {
	cw := csv.NewWriter(w)
	header := append([]string{"date", "close"}, model.FeatureNames(ds.Windows)...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range ds.Rows {
		rec := []string{r.Time.Format(dateLayout), ftoa(r.Close)}
		for _, v := range r.Features(ds.Windows) {
			rec = append(rec, ftoa(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBacktest writes actual vs predicted closes for the test months.
func WriteBacktest(w io.Writer, points []model.BacktestPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "actual", "predicted"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Time.Format(dateLayout), ftoa(p.Actual), ftoa(p.Predicted)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecast writes the simulated future path.
func WriteForecast(w io.Writer, path model.ForecastPath) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "predicted_close"}); err != nil {
		return err
	}
	for _, p := range path.Points {
		if err := cw.Write([]string{p.Time.Format(dateLayout), ftoa(p.Close)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetrics writes the metric bundle as indented JSON.
func WriteMetrics(w io.Writer, m model.MetricBundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ChartRow is one month of the combined history/backtest/forecast table.
// Empty optional fields mean the series has no value that month.
type ChartRow struct {
	Time     time.Time
	Actual   *float64
	Backtest *float64
	Forecast *float64
}

// ChartTable joins the last historyMonths of observed closes with the
// backtest predictions and the forecast path, ordered by time.
func ChartTable(series model.PriceSeries, res *model.RunResult, historyMonths int) []ChartRow {
	obs := series.Observations
	if historyMonths > 0 && len(obs) > historyMonths {
		obs = obs[len(obs)-historyMonths:]
	}

	rows := make([]ChartRow, 0, len(obs)+len(res.Forecast.Points))
	index := make(map[time.Time]int, len(obs))
	for _, o := range obs {
		c := o.Close
		index[o.Time] = len(rows)
		rows = append(rows, ChartRow{Time: o.Time, Actual: &c})
	}
	for _, p := range res.Backtest {
		if i, ok := index[p.Time]; ok {
			v := p.Predicted
			rows[i].Backtest = &v
		}
	}
	for _, p := range res.Forecast.Points {
		v := p.Close
		rows = append(rows, ChartRow{Time: p.Time, Forecast: &v})
	}
	return rows
}

func opt(p *float64) string {
	if p == nil {
		return ""
	}
	return ftoa(*p)
}

// WriteChartTable writes rows as date,actual,backtest,forecast.
func WriteChartTable(w io.Writer, rows []ChartRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "actual", "backtest", "forecast"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Time.Format(dateLayout), opt(r.Actual), opt(r.Backtest), opt(r.Forecast)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes every artifact of a run under Dir.
type Exporter struct {
	Dir           string
	HistoryMonths int
}

// Export writes <symbol>_monthly_{features,backtest,forecast,chart}.csv and
// <symbol>_monthly_metrics.json. It returns the paths written.
func (e Exporter) Export(series model.PriceSeries, res *model.RunResult) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	prefix := strings.ToLower(res.Symbol) + "_monthly_"
	chart := ChartTable(series, res, e.HistoryMonths)

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"features.csv", func(w io.Writer) error { return WriteFeatures(w, res.Dataset) }},
		{"backtest.csv", func(w io.Writer) error { return WriteBacktest(w, res.Backtest) }},
		{"forecast.csv", func(w io.Writer) error { return WriteForecast(w, res.Forecast) }},
		{"chart.csv", func(w io.Writer) error { return WriteChartTable(w, chart) }},
		{"metrics.json", func(w io.Writer) error { return WriteMetrics(w, res.Metrics) }},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(e.Dir, prefix+f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeFile writes through a temp file and renames it into place.
func writeFile(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
