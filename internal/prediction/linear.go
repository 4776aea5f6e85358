// internal/prediction/linear.go
package prediction

// LinearModel predicts intercept + Σ coefficient·feature.
type LinearModel struct {
	Names        []string  `json:"feature_names"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *LinearModel) FeatureNames() []string { return m.Names }

func (m *LinearModel) Type() string { return ModelTypeLinear }

func (m *LinearModel) Predict(row []float64) (float64, error) {
	if err := checkRow(m.Names, row); err != nil {
		return 0, err
	}
	sum := m.Intercept
	for i, x := range row {
		sum += m.Coefficients[i] * x
	}
	return sum, nil
}

func (m *LinearModel) validate() error {
	if len(m.Names) == 0 {
		return ErrEmptyFeatures
	}
	if len(m.Coefficients) != len(m.Names) {
		return ErrCoefficientLen
	}
	return nil
}
