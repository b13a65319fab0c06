package classify

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// RandomForest is a seeded, class-balance-weighted random forest for
// binary classification. Anomalies are rare relative to normal periods,
// so each class is weighted by n/(2*count) during tree construction the
// way balanced ensemble classifiers conventionally do.
type RandomForest struct {
	estimators int
	maxDepth   int
	seed       int64

	trees       []tree
	nFeatures   int
	importances []float64
	trained     bool
}

// tree stores nodes in a flat slice; children reference node indexes.
type tree struct {
	Nodes []treeNode
}

// treeNode is an internal split or, when Left is -1, a leaf carrying the
// weighted positive-class fraction of the samples that reached it.
type treeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Prob      float64
}

// Option configures a RandomForest.
type Option func(*RandomForest)

// WithEstimators sets the number of trees in the ensemble.
func WithEstimators(n int) Option {
	return func(f *RandomForest) {
		if n > 0 {
			f.estimators = n
		}
	}
}

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(d int) Option {
	return func(f *RandomForest) {
		if d > 0 {
			f.maxDepth = d
		}
	}
}

// WithSeed sets the random seed. Fits with the same seed and data build
// identical forests.
func WithSeed(seed int64) Option {
	return func(f *RandomForest) {
		f.seed = seed
	}
}

// NewRandomForest creates a forest with the given options. Defaults:
// 100 trees, depth 10, seed 42.
func NewRandomForest(opts ...Option) *RandomForest {
	f := &RandomForest{
		estimators: 100,
		maxDepth:   10,
		seed:       42,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit trains the forest. Labels must be 0 or 1 and match the row count.
func (f *RandomForest) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return errors.New("empty training data")
	}
	if len(labels) != len(features) {
		return fmt.Errorf("got %d labels for %d rows", len(labels), len(features))
	}

	nSamples := len(features)
	nFeatures := len(features[0])
	if nFeatures == 0 {
		return errors.New("training rows have no features")
	}
	for i, row := range features {
		if len(row) != nFeatures {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), nFeatures)
		}
	}

	var count0, count1 int
	for i, y := range labels {
		switch y {
		case 0:
			count0++
		case 1:
			count1++
		default:
			return fmt.Errorf("label %d at row %d is not binary", y, i)
		}
	}

	// Balanced class weights: n / (2 * count_c).
	var weight0, weight1 float64
	if count0 > 0 {
		weight0 = float64(nSamples) / (2 * float64(count0))
	}
	if count1 > 0 {
		weight1 = float64(nSamples) / (2 * float64(count1))
	}

	mtry := int(math.Sqrt(float64(nFeatures)) + 0.5)
	if mtry < 1 {
		mtry = 1
	}

	rng := rand.New(rand.NewSource(f.seed))
	b := &treeBuilder{
		features:    features,
		labels:      labels,
		weight0:     weight0,
		weight1:     weight1,
		nFeatures:   nFeatures,
		mtry:        mtry,
		maxDepth:    f.maxDepth,
		rng:         rng,
		importances: make([]float64, nFeatures),
	}

	trees := make([]tree, f.estimators)
	for i := range trees {
		// Bootstrap sample with replacement.
		indices := make([]int, nSamples)
		for j := range indices {
			indices[j] = rng.Intn(nSamples)
		}

		b.nodes = b.nodes[:0]
		b.build(indices, 0)
		nodes := make([]treeNode, len(b.nodes))
		copy(nodes, b.nodes)
		trees[i] = tree{Nodes: nodes}
	}

	// Normalize accumulated impurity decreases to a unit sum.
	var sum float64
	for _, v := range b.importances {
		sum += v
	}
	importances := make([]float64, nFeatures)
	if sum > 0 {
		for i, v := range b.importances {
			importances[i] = v / sum
		}
	}

	f.trees = trees
	f.nFeatures = nFeatures
	f.importances = importances
	f.trained = true
	return nil
}

type treeBuilder struct {
	features [][]float64
	labels   []int
	weight0  float64
	weight1  float64

	nFeatures int
	mtry      int
	maxDepth  int
	rng       *rand.Rand

	nodes       []treeNode
	importances []float64
}

// build appends the subtree for the given sample indices and returns the
// index of its root node.
func (b *treeBuilder) build(indices []int, depth int) int {
	var w0, w1 float64
	for _, i := range indices {
		if b.labels[i] == 1 {
			w1 += b.weight1
		} else {
			w0 += b.weight0
		}
	}
	total := w0 + w1

	prob := 0.5
	if total > 0 {
		prob = w1 / total
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Left: -1, Right: -1, Prob: prob})

	if depth >= b.maxDepth || len(indices) < 2 || w0 == 0 || w1 == 0 {
		return self
	}

	parentGini := gini(w0, w1)
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	for _, feat := range b.rng.Perm(b.nFeatures)[:b.mtry] {
		sorted := make([]int, len(indices))
		copy(sorted, indices)
		sort.Slice(sorted, func(i, j int) bool {
			return b.features[sorted[i]][feat] < b.features[sorted[j]][feat]
		})

		var l0, l1 float64
		for i := 0; i < len(sorted)-1; i++ {
			if b.labels[sorted[i]] == 1 {
				l1 += b.weight1
			} else {
				l0 += b.weight0
			}

			v, next := b.features[sorted[i]][feat], b.features[sorted[i+1]][feat]
			if v == next {
				continue
			}

			r0, r1 := w0-l0, w1-l1
			gain := parentGini*total - gini(l0, l1)*(l0+l1) - gini(r0, r1)*(r0+r1)
			if gain > bestGain {
				bestGain = gain
				bestFeature = feat
				bestThreshold = (v + next) / 2
			}
		}
	}

	if bestFeature < 0 || bestGain <= 1e-12 {
		return self
	}

	var left, right []int
	for _, i := range indices {
		if b.features[i][bestFeature] < bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return self
	}

	b.importances[bestFeature] += bestGain

	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)
	b.nodes[self] = treeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      leftIdx,
		Right:     rightIdx,
		Prob:      prob,
	}
	return self
}

func gini(w0, w1 float64) float64 {
	total := w0 + w1
	if total == 0 {
		return 0
	}
	p0 := w0 / total
	p1 := w1 / total
	return 1 - p0*p0 - p1*p1
}

// PredictProba returns the positive-class probability per row, averaged
// over the ensemble.
func (f *RandomForest) PredictProba(features [][]float64) ([]float64, error) {
	if !f.trained {
		return nil, errors.New("model not trained")
	}
	probs := make([]float64, len(features))
	for i, row := range features {
		if len(row) != f.nFeatures {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), f.nFeatures)
		}
		var sum float64
		for _, t := range f.trees {
			sum += t.walk(row)
		}
		probs[i] = sum / float64(len(f.trees))
	}
	return probs, nil
}

// Predict thresholds PredictProba at 0.5.
func (f *RandomForest) Predict(features [][]float64) ([]int, error) {
	probs, err := f.PredictProba(features)
	if err != nil {
		return nil, err
	}
	preds := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			preds[i] = 1
		}
	}
	return preds, nil
}

// FeatureImportances returns the normalized impurity-decrease importances
// in training column order.
func (f *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

// Algorithm returns the persistence tag for this classifier.
func (f *RandomForest) Algorithm() string {
	return AlgoRandomForest
}

func (t tree) walk(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Prob
		}
		if row[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// forestState is the gob wire form of a trained forest.
type forestState struct {
	Estimators  int
	MaxDepth    int
	Seed        int64
	NFeatures   int
	Importances []float64
	Trees       []tree
}

// MarshalBinary serializes the trained forest.
func (f *RandomForest) MarshalBinary() ([]byte, error) {
	if !f.trained {
		return nil, errors.New("model not trained")
	}
	var buf bytes.Buffer
	state := forestState{
		Estimators:  f.estimators,
		MaxDepth:    f.maxDepth,
		Seed:        f.seed,
		NFeatures:   f.nFeatures,
		Importances: f.importances,
		Trees:       f.trees,
	}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a trained forest.
func (f *RandomForest) UnmarshalBinary(data []byte) error {
	var state forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}
	f.estimators = state.Estimators
	f.maxDepth = state.MaxDepth
	f.seed = state.Seed
	f.nFeatures = state.NFeatures
	f.importances = state.Importances
	f.trees = state.Trees
	f.trained = true
	return nil
}
