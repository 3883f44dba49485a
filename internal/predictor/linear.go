package predictor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"CryptoForecast/internal/model"
)

// rcond is the relative singular value cutoff for the least squares rank.
const rcond = 1e-10

// Linear is ordinary least squares with an intercept.
//
// Columns are standardized before solving and the minimum-norm solution is
// taken from an SVD, so exactly collinear features (bb_upper + bb_lower =
// 2*bb_ma) do not make the fit fail.
type Linear struct {
	Coef      []float64
	Intercept float64
	fitted    bool
}

// NewLinear returns an unfitted linear model.
func NewLinear() *Linear { return &Linear{} }

// Name identifies the backend in logs and reports.
func (l *Linear) Name() string { return KindLinear.String() }

// Fit solves for Coef and Intercept. Empty or ragged input is a model error.
func (l *Linear) Fit(X [][]float64, y []float64) error {
	n, p, err := shape("predictor.linear", X, y)
	if err != nil {
		return err
	}

	means := make([]float64, p)
	scales := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		means[j] = m
		scales[j] = 1
		if sd > 0 {
			scales[j] = sd
		}
	}
	yMean := stat.Mean(y, nil)

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i := range X {
		for j := 0; j < p; j++ {
			a.Set(i, j, (X[i][j]-means[j])/scales[j])
		}
		b.Set(i, 0, y[i]-yMean)
	}

	l.Coef = make([]float64, p)
	l.Intercept = yMean

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return model.ModelError("predictor.linear", "X", fmt.Errorf("svd factorization failed"))
	}
	if rank := svd.Rank(rcond); rank > 0 {
		var beta mat.Dense
		svd.SolveTo(&beta, b, rank)
		for j := 0; j < p; j++ {
			l.Coef[j] = beta.At(j, 0) / scales[j]
			l.Intercept -= l.Coef[j] * means[j]
		}
	}
	l.fitted = true
	return nil
}

// Predict applies the fitted coefficients to each row of X.
func (l *Linear) Predict(X [][]float64) ([]float64, error) {
	if err := checkPredict("predictor.linear", l.fitted, len(l.Coef), X); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := l.Intercept
		for j, x := range row {
			v += l.Coef[j] * x
		}
		out[i] = v
	}
	return out, nil
}
