// Package engine scores daily feature rows of a financial instrument as
// anomalous or normal. It prepares feature matrices from loosely typed
// tables, trains a class-balance-weighted classifier, attaches calibrated
// probability, prediction and severity columns back onto the caller's
// table, persists trained models, and summarizes detected anomalies.
//
// Structural misconfiguration (missing required columns, missing model
// files) surfaces as errors. Runtime scoring faults never propagate: they
// degrade to well-defined default outputs so one bad batch cannot halt a
// caller's pipeline.
package engine

import (
	"errors"

	"market-anomaly/internal/classify"
)

// FeatureVocabulary is the fixed set of feature columns the engine
// recognizes, in the order the model consumes them.
var FeatureVocabulary = []string{
	"return",
	"volatility",
	"rsi",
	"macd",
	"macd_diff",
	"relative_volume",
	"bollinger_band_width",
	"log_return",
}

// Column names the engine reads and writes.
const (
	LabelColumn = "anomaly"

	ColProbability = "anomaly_probability"
	ColPrediction  = "anomaly_prediction"
	ColSeverity    = "anomaly_severity"
)

// severityDivisor normalizes severity's numeric range. Severity is
// probability x |return| / severityDivisor. Tunable constant, not derived.
const severityDivisor = 5.0

var (
	// ErrNoFeatures means none of the recognized feature columns were
	// present in the input table.
	ErrNoFeatures = errors.New("no recognized feature columns available")

	// ErrLabelMissing means the training label column is absent.
	ErrLabelMissing = errors.New("label column missing")

	// ErrPredictionMissing means a table passed to Analyze was never
	// scored.
	ErrPredictionMissing = errors.New("prediction column missing")

	// ErrModelNotFound means the model file does not exist.
	ErrModelNotFound = errors.New("model file not found")
)

// MetricsInterface defines the metrics methods the engine reports to.
type MetricsInterface interface {
	TrainingsInc()
	TrainingFailuresInc()
	RowsScoredAdd(float64)
	RowsDroppedAdd(float64)
	ScoringFailuresInc()
	AnomaliesDetectedAdd(float64)
	TrainDurationObserve(float64)
	PredictDurationObserve(float64)
}

// Engine is the anomaly scoring engine. One instance is used by one
// caller at a time; no internal locking is provided.
type Engine struct {
	clf classify.Classifier

	// features is the active set from the most recent preparation;
	// modelFeatures is the ordered set the current classifier was
	// fitted with, used to validate inference consistency.
	features      []string
	modelFeatures []string
	importance    []classify.Importance

	estimators int
	maxDepth   int
	seed       int64

	newClassifier func() classify.Classifier
	metrics       MetricsInterface
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEstimators sets the ensemble size used by Train.
func WithEstimators(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.estimators = n
		}
	}
}

// WithMaxDepth sets the maximum tree depth used by Train.
func WithMaxDepth(d int) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.maxDepth = d
		}
	}
}

// WithSeed sets the training random seed.
func WithSeed(seed int64) EngineOption {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m MetricsInterface) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClassifier installs an already trained classifier, replacing any
// model the engine holds.
func WithClassifier(c classify.Classifier) EngineOption {
	return func(e *Engine) {
		e.clf = c
	}
}

// WithClassifierFactory overrides how Train constructs its classifier.
func WithClassifierFactory(factory func() classify.Classifier) EngineOption {
	return func(e *Engine) {
		e.newClassifier = factory
	}
}

// New creates an engine. Defaults: 100 estimators, depth 10, seed 42.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		estimators: 100,
		maxDepth:   10,
		seed:       42,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.newClassifier == nil {
		e.newClassifier = func() classify.Classifier {
			return classify.NewRandomForest(
				classify.WithEstimators(e.estimators),
				classify.WithMaxDepth(e.maxDepth),
				classify.WithSeed(e.seed),
			)
		}
	}
	return e
}

// ActiveFeatures returns the feature list from the last preparation or
// model load, in model column order.
func (e *Engine) ActiveFeatures() []string {
	out := make([]string, len(e.features))
	copy(out, e.features)
	return out
}

// Importances returns the feature-importance ranking of the current
// model, descending by weight. Nil when no model is trained or the
// loaded model file predates importance tracking.
func (e *Engine) Importances() []classify.Importance {
	if len(e.importance) == 0 {
		return nil
	}
	out := make([]classify.Importance, len(e.importance))
	copy(out, e.importance)
	return out
}
