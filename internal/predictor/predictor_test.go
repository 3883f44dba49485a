package predictor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoForecast/internal/model"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		id   string
		want Kind
		ok   bool
	}{
		{"LinearRegression", KindLinear, true},
		{" linear ", KindLinear, true},
		{"RandomForest", KindRandomForest, true},
		{"rf", KindRandomForest, true},
		{"XGBoost", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.id)
		assert.Equal(t, tt.ok, ok, tt.id)
		assert.Equal(t, tt.want, got, tt.id)
	}
}

func TestResolve_UnknownFallsBackWithWarning(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	assert.Equal(t, DefaultKind, Resolve("XGBoost", log))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "unknown model type")
	assert.Contains(t, buf.String(), "XGBoost")

	for _, blank := range []string{"", "  "} {
		buf.Reset()
		assert.Equal(t, DefaultKind, Resolve(blank, log))
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), "model type not set")
	}

	buf.Reset()
	assert.Equal(t, KindLinear, Resolve("LinearRegression", log))
	assert.Empty(t, buf.String())
}

func TestNew(t *testing.T) {
	assert.Equal(t, "LinearRegression", New(KindLinear, Options{}).Name())
	assert.Equal(t, "RandomForest", New(KindRandomForest, Options{}).Name())
	assert.Equal(t, "RandomForest", New(Kind(99), Options{}).Name())
}

func TestLinear_RecoversPlane(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 12; i++ {
		x1, x2 := float64(i), float64((i*7)%5)
		X = append(X, []float64{x1, x2})
		y = append(y, 2*x1+3*x2+1)
	}
	l := NewLinear()
	require.NoError(t, l.Fit(X, y))
	assert.InDelta(t, 2.0, l.Coef[0], 1e-8)
	assert.InDelta(t, 3.0, l.Coef[1], 1e-8)
	assert.InDelta(t, 1.0, l.Intercept, 1e-8)

	pred, err := l.Predict([][]float64{{100, 2}})
	require.NoError(t, err)
	assert.InDelta(t, 207.0, pred[0], 1e-6)
}

func TestLinear_CollinearAndConstantColumns(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 10; i++ {
		a, b := float64(i), float64(i*i%7)
		X = append(X, []float64{a, b, a + b, 4})
		y = append(y, a+2*b+5)
	}
	l := NewLinear()
	require.NoError(t, l.Fit(X, y))
	pred, err := l.Predict(X)
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i], pred[i], 1e-6)
	}
}

func TestLinear_Errors(t *testing.T) {
	l := NewLinear()
	_, err := l.Predict([][]float64{{1}})
	assert.True(t, errors.Is(err, model.ErrModel))

	assert.True(t, errors.Is(l.Fit(nil, nil), model.ErrModel))
	assert.True(t, errors.Is(l.Fit([][]float64{{1, 2}, {3}}, []float64{1, 2}), model.ErrModel))
	assert.True(t, errors.Is(l.Fit([][]float64{{1}}, []float64{1, 2}), model.ErrModel))

	require.NoError(t, l.Fit([][]float64{{1, 2}, {2, 3}, {4, 1}}, []float64{1, 2, 3}))
	_, err = l.Predict([][]float64{{1}})
	assert.True(t, errors.Is(err, model.ErrModel))
}

func noisy() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x, float64(i % 3)})
		step := 0.0
		if x > 20 {
			step = 50
		}
		y = append(y, step+float64((i*37)%11))
	}
	return X, y
}

func TestForest_DeterministicForSeed(t *testing.T) {
	X, y := noisy()
	queries := [][]float64{{3, 1}, {18.5, 0}, {33, 2}}

	f1 := NewForest(Options{Seed: 42, Trees: 25})
	require.NoError(t, f1.Fit(X, y))
	p1, err := f1.Predict(queries)
	require.NoError(t, err)

	f2 := NewForest(Options{Seed: 42, Trees: 25})
	require.NoError(t, f2.Fit(X, y))
	p2, err := f2.Predict(queries)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	f3 := NewForest(Options{Seed: 7, Trees: 25})
	require.NoError(t, f3.Fit(X, y))
	p3, err := f3.Predict(queries)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p3)
}

func TestForest_LearnsStep(t *testing.T) {
	X, y := noisy()
	f := NewForest(Options{Seed: 1, Trees: 50, MaxFeatures: 1})
	require.NoError(t, f.Fit(X, y))
	pred, err := f.Predict([][]float64{{5, 0}, {35, 0}})
	require.NoError(t, err)
	assert.Less(t, pred[0], 15.0)
	assert.Greater(t, pred[1], 45.0)
}

func TestForest_PredictionsWithinTargetRange(t *testing.T) {
	X, y := noisy()
	f := NewForest(Options{Seed: 3, Trees: 10, MaxDepth: 3, MinSamplesLeaf: 2})
	require.NoError(t, f.Fit(X, y))
	pred, err := f.Predict(X)
	require.NoError(t, err)
	for _, p := range pred {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 60.0)
	}
}

func TestForest_SingleRow(t *testing.T) {
	f := NewForest(Options{Seed: 1, Trees: 3})
	require.NoError(t, f.Fit([][]float64{{1, 2}}, []float64{9}))
	pred, err := f.Predict([][]float64{{5, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, pred)
}

func TestForest_PredictBeforeFit(t *testing.T) {
	_, err := NewForest(Options{}).Predict([][]float64{{1}})
	assert.True(t, errors.Is(err, model.ErrModel))
}
