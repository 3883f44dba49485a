package model

import (
	"fmt"
	"time"
)

// FeatureRow is one fully-defined row of the feature table.
type FeatureRow struct {
	Time    time.Time       `json:"timestamp"`
	Close   float64         `json:"close"`
	Volume  float64         `json:"volume"`
	MA      map[int]float64 `json:"ma"` // keyed by window
	RSI     float64         `json:"rsi"`
	BBMA    float64         `json:"bb_ma"`
	BBUpper float64         `json:"bb_upper"`
	BBLower float64         `json:"bb_lower"`
	Month   int             `json:"month"`
	Quarter int             `json:"quarter"`
}

// Features returns the model input vector. Column order matches FeatureNames.
func (r FeatureRow) Features(windows []int) []float64 {
	out := make([]float64, 0, len(windows)+7)
	out = append(out, r.Volume)
	for _, w := range windows {
		out = append(out, r.MA[w])
	}
	return append(out, r.RSI, r.BBMA, r.BBUpper, r.BBLower, float64(r.Month), float64(r.Quarter))
}

// FeatureNames lists the model input columns for the given MA windows.
func FeatureNames(windows []int) []string {
	names := []string{"volume"}
	for _, w := range windows {
		names = append(names, fmt.Sprintf("ma_%d", w))
	}
	return append(names, "rsi", "bb_ma", "bb_upper", "bb_lower", "month", "quarter")
}

// Dataset is an ordered feature table. Windows records the MA windows used to build it.
type Dataset struct {
	Windows []int        `json:"ma_windows"`
	Rows    []FeatureRow `json:"rows"`
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Rows) }

// Matrix returns the feature matrix and the close target.
func (d Dataset) Matrix() (X [][]float64, y []float64) {
	X = make([][]float64, len(d.Rows))
	y = make([]float64, len(d.Rows))
	for i, r := range d.Rows {
		X[i] = r.Features(d.Windows)
		y[i] = r.Close
	}
	return X, y
}

// Slice returns rows [from, to) sharing the same windows.
func (d Dataset) Slice(from, to int) Dataset {
	return Dataset{Windows: d.Windows, Rows: d.Rows[from:to:to]}
}
