// Package classify defines the classifier capability used by the anomaly
// scoring engine and provides a pure-Go random forest implementation.
// Any binary classifier that satisfies the Classifier interface can be
// substituted, which is how deterministic stubs are used in tests.
package classify

import (
	"fmt"
	"sort"
)

// Classifier is a trainable binary classifier over dense feature rows.
// Labels are 0 (normal) and 1 (anomalous).
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	Predict(features [][]float64) ([]int, error)
	// PredictProba returns the probability of the positive class per row.
	PredictProba(features [][]float64) ([]float64, error)
	// FeatureImportances returns one weight per training feature, in
	// training column order. Empty until fitted.
	FeatureImportances() []float64
}

// Importance pairs a feature name with its importance weight.
type Importance struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// RankImportances pairs names with weights and sorts descending by weight.
// Names beyond the weight count are ignored and vice versa.
func RankImportances(names []string, weights []float64) []Importance {
	n := len(names)
	if len(weights) < n {
		n = len(weights)
	}
	ranked := make([]Importance, n)
	for i := 0; i < n; i++ {
		ranked[i] = Importance{Feature: names[i], Weight: weights[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})
	return ranked
}

// AlgoRandomForest tags serialized random forest models.
const AlgoRandomForest = "random_forest"

// Restore rebuilds a classifier from its algorithm tag and serialized
// state, as written by model persistence.
func Restore(algo string, payload []byte) (Classifier, error) {
	switch algo {
	case AlgoRandomForest:
		f := &RandomForest{}
		if err := f.UnmarshalBinary(payload); err != nil {
			return nil, fmt.Errorf("restore random forest: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown classifier algorithm %q", algo)
	}
}
