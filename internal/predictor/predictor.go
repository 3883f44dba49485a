// Package predictor provides interchangeable regression backends behind a
// single fit/predict interface.
package predictor

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"CryptoForecast/internal/model"
)

// Regressor is a point-forecast regression model.
type Regressor interface {
	// Fit trains on rows of X against target y.
	Fit(X [][]float64, y []float64) error
	// Predict returns one value per row of X, in row order.
	Predict(X [][]float64) ([]float64, error)
	Name() string
}

// Kind enumerates the supported backends.
type Kind int

const (
	KindLinear Kind = iota + 1
	KindRandomForest
)

// DefaultKind is used when the configured model type is not recognized.
const DefaultKind = KindRandomForest

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "LinearRegression"
	case KindRandomForest:
		return "RandomForest"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configured model identifier to a Kind.
func ParseKind(id string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "linearregression", "linear_regression", "linear", "ols":
		return KindLinear, true
	case "randomforest", "random_forest", "forest", "rf":
		return KindRandomForest, true
	default:
		return 0, false
	}
}

// Resolve returns the Kind for id, falling back to DefaultKind with a warning
// when id is not recognized.
func Resolve(id string, log zerolog.Logger) Kind {
	if k, ok := ParseKind(id); ok {
		return k
	}
	msg := "unknown model type, using default"
	if strings.TrimSpace(id) == "" {
		msg = "model type not set, using default"
	}
	log.Warn().Str("model_type", id).Stringer("fallback", DefaultKind).Msg(msg)
	return DefaultKind
}

// Options tunes the backends. Seed drives every random choice a backend makes.
type Options struct {
	Seed           uint64
	Trees          int
	MaxDepth       int // 0 means unlimited
	MinSamplesLeaf int
	MaxFeatures    int // 0 means every feature at every split
}

// New builds an unfitted Regressor of the given kind.
func New(kind Kind, opts Options) Regressor {
	switch kind {
	case KindLinear:
		return NewLinear()
	default:
		return NewForest(opts)
	}
}

// shape checks that X is a non-empty rectangular matrix matching y.
func shape(component string, X [][]float64, y []float64) (rows, cols int, err error) {
	if len(X) == 0 {
		return 0, 0, model.ModelError(component, "X", fmt.Errorf("no training rows"))
	}
	if y != nil && len(y) != len(X) {
		return 0, 0, model.ModelError(component, "y", fmt.Errorf("%d targets for %d rows", len(y), len(X)))
	}
	cols = len(X[0])
	if cols == 0 {
		return 0, 0, model.ModelError(component, "X", fmt.Errorf("rows have no features"))
	}
	for i, row := range X {
		if len(row) != cols {
			return 0, 0, model.ModelError(component, "X", fmt.Errorf("row %d has %d features, want %d", i, len(row), cols))
		}
	}
	return len(X), cols, nil
}

func checkPredict(component string, fitted bool, width int, X [][]float64) error {
	if !fitted {
		return model.ModelError(component, "model", fmt.Errorf("predict called before fit"))
	}
	for i, row := range X {
		if len(row) != width {
			return model.ModelError(component, "X", fmt.Errorf("row %d has %d features, model expects %d", i, len(row), width))
		}
	}
	return nil
}
