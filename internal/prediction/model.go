// internal/prediction/model.go
package prediction

import (
	"errors"
	"fmt"
)

// Model is a pre-trained regressor. Predict consumes a row ordered by FeatureNames.
type Model interface {
	FeatureNames() []string
	Predict(row []float64) (float64, error)
}

// Model artifact types.
const (
	ModelTypeLinear       = "linear"
	ModelTypeTreeEnsemble = "tree_ensemble"
)

var (
	ErrRowLength      = errors.New("row length does not match feature names")
	ErrUnknownType    = errors.New("unsupported model type")
	ErrEmptyFeatures  = errors.New("model has no feature names")
	ErrInvalidTree    = errors.New("invalid tree structure")
	ErrNoTrees        = errors.New("tree ensemble has no trees")
	ErrCoefficientLen = errors.New("coefficient count does not match feature names")
)

// Describer is implemented by models that can report their artifact type.
type Describer interface {
	Type() string
}

func checkRow(names []string, row []float64) error {
	if len(row) != len(names) {
		return fmt.Errorf("%w: got %d, want %d", ErrRowLength, len(row), len(names))
	}
	return nil
}
