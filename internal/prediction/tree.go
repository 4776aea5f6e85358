// internal/prediction/tree.go
package prediction

import "fmt"

// Ensemble aggregation modes.
const (
	AggregationSum  = "sum"
	AggregationMean = "mean"
)

// TreeNode is one node of a flattened regression tree. Node 0 is the root.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// RegressionTree walks left when row[FeatureIdx] <= Threshold.
type RegressionTree []TreeNode

func (t RegressionTree) predict(row []float64) float64 {
	idx := 0
	for {
		node := t[idx]
		if node.IsLeaf {
			return node.Value
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// validate checks indices so that predict always terminates: children must point
// forward in the node list, which is how depth-first flattening lays trees out.
func (t RegressionTree) validate(featureCount int) error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidTree)
	}
	for i, node := range t {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("%w: node %d feature index %d out of range", ErrInvalidTree, i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(t) {
				return fmt.Errorf("%w: node %d child %d out of range", ErrInvalidTree, i, child)
			}
		}
	}
	return nil
}

// TreeEnsemble covers gradient boosting (sum) and random forests (mean).
type TreeEnsemble struct {
	Names        []string         `json:"feature_names"`
	BaseScore    float64          `json:"base_score"`
	Aggregation  string           `json:"aggregation"`
	LearningRate float64          `json:"learning_rate"`
	Trees        []RegressionTree `json:"trees"`
}

func (m *TreeEnsemble) FeatureNames() []string { return m.Names }

func (m *TreeEnsemble) Type() string { return ModelTypeTreeEnsemble }

func (m *TreeEnsemble) Predict(row []float64) (float64, error) {
	if err := checkRow(m.Names, row); err != nil {
		return 0, err
	}

	var total float64
	for _, tree := range m.Trees {
		total += tree.predict(row)
	}

	if m.Aggregation == AggregationMean {
		return m.BaseScore + total/float64(len(m.Trees)), nil
	}
	return m.BaseScore + m.LearningRate*total, nil
}

func (m *TreeEnsemble) validate() error {
	if len(m.Names) == 0 {
		return ErrEmptyFeatures
	}
	if len(m.Trees) == 0 {
		return ErrNoTrees
	}
	switch m.Aggregation {
	case "":
		m.Aggregation = AggregationSum
	case AggregationSum, AggregationMean:
	default:
		return fmt.Errorf("unsupported aggregation %q", m.Aggregation)
	}
	if m.LearningRate == 0 {
		m.LearningRate = 1
	}
	for i, tree := range m.Trees {
		if err := tree.validate(len(m.Names)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
