// Package feature joins a price series with its indicators and calendar
// fields into a dated feature table.
package feature

import (
	"slices"

	"github.com/rs/zerolog"

	"CryptoForecast/internal/calculator"
	"CryptoForecast/internal/model"
)

// Params selects the indicator windows.
type Params struct {
	MAWindows []int
	RSIWindow int
	BBWindow  int
}

// MaxWindow is the longest configured window.
func (p Params) MaxWindow() int {
	return slices.Max(append([]int{p.RSIWindow, p.BBWindow}, p.MAWindows...))
}

// Validate checks that every window is positive.
func (p Params) Validate() error {
	if len(p.MAWindows) == 0 {
		return model.ConfigErrorf("feature", "ma_windows", "at least one moving average window is required")
	}
	for _, w := range p.MAWindows {
		if w <= 0 {
			return model.ConfigErrorf("feature", "ma_windows", "window must be positive, got %d", w)
		}
	}
	if p.RSIWindow <= 0 {
		return model.ConfigErrorf("feature", "rsi_window", "window must be positive, got %d", p.RSIWindow)
	}
	if p.BBWindow <= 0 {
		return model.ConfigErrorf("feature", "bb_window", "window must be positive, got %d", p.BBWindow)
	}
	return nil
}

// Report describes what Build dropped.
type Report struct {
	InputRows int
	Dropped   int
}

// Builder computes feature tables.
type Builder struct {
	params Params
	log    zerolog.Logger
}

// NewBuilder returns a Builder. Duplicate MA windows are collapsed and sorted.
func NewBuilder(p Params, log zerolog.Logger) *Builder {
	windows := slices.Clone(p.MAWindows)
	slices.Sort(windows)
	p.MAWindows = slices.Compact(windows)
	return &Builder{params: p, log: log}
}

// Build validates the series, computes every indicator and drops each row
// that has at least one undefined field. The surviving rows keep time order.
func (b *Builder) Build(series model.PriceSeries) (model.Dataset, Report, error) {
	if err := b.params.Validate(); err != nil {
		return model.Dataset{}, Report{}, err
	}
	if err := series.Validate(); err != nil {
		return model.Dataset{}, Report{}, err
	}
	if need := b.params.MaxWindow(); series.Len() < need {
		return model.Dataset{}, Report{}, model.DataErrorf("feature", "series",
			"%d observations is shorter than the longest window (%d)", series.Len(), need)
	}

	closes := series.Closes()
	mas := make(map[int][]calculator.Value, len(b.params.MAWindows))
	for _, w := range b.params.MAWindows {
		ma, err := calculator.MovingAverage(closes, w)
		if err != nil {
			return model.Dataset{}, Report{}, err
		}
		mas[w] = ma
	}
	rsi, err := calculator.RSI(closes, b.params.RSIWindow)
	if err != nil {
		return model.Dataset{}, Report{}, err
	}
	bands, err := calculator.BollingerBands(closes, b.params.BBWindow)
	if err != nil {
		return model.Dataset{}, Report{}, err
	}

	ds := model.Dataset{Windows: b.params.MAWindows}
	for i, obs := range series.Observations {
		row, ok := b.row(i, obs, mas, rsi, bands)
		if !ok {
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	rep := Report{InputRows: series.Len(), Dropped: series.Len() - ds.Len()}
	b.log.Debug().
		Str("symbol", series.Symbol).
		Int("input_rows", rep.InputRows).
		Int("dropped", rep.Dropped).
		Msg("feature table built")

	if ds.Len() == 0 {
		return model.Dataset{}, rep, model.DataErrorf("feature", "series",
			"no row has every indicator defined (bb_window must be >= 2 and the series must move)")
	}
	return ds, rep, nil
}

func (b *Builder) row(i int, obs model.PriceObservation, mas map[int][]calculator.Value,
	rsi []calculator.Value, bands calculator.Bands) (model.FeatureRow, bool) {
	if !rsi[i].Valid || !bands.MA[i].Valid || !bands.Upper[i].Valid || !bands.Lower[i].Valid {
		return model.FeatureRow{}, false
	}
	row := model.FeatureRow{
		Time:    obs.Time,
		Close:   obs.Close,
		Volume:  obs.Volume,
		MA:      make(map[int]float64, len(mas)),
		RSI:     rsi[i].V,
		BBMA:    bands.MA[i].V,
		BBUpper: bands.Upper[i].V,
		BBLower: bands.Lower[i].V,
		Month:   int(obs.Time.Month()),
		Quarter: Quarter(obs.Time.Month()),
	}
	for w, ma := range mas {
		if !ma[i].Valid {
			return model.FeatureRow{}, false
		}
		row.MA[w] = ma[i].V
	}
	return row, true
}
