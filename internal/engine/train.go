package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"market-anomaly/internal/classify"
	"market-anomaly/internal/frame"
)

// Train fits a classifier on the table's recognized feature columns
// against the binary label column and records the feature-importance
// ranking. A fitting failure leaves the engine in its pre-training state.
func (e *Engine) Train(t *frame.Table) error {
	start := time.Now()

	prep, err := e.Prepare(t, true)
	if err != nil {
		if e.metrics != nil {
			e.metrics.TrainingFailuresInc()
		}
		return err
	}
	if len(prep.Matrix) == 0 {
		if e.metrics != nil {
			e.metrics.TrainingFailuresInc()
		}
		return fmt.Errorf("no usable training rows after cleaning")
	}

	var positives int
	for _, y := range prep.Labels {
		positives += y
	}

	clf := e.newClassifier()
	if err := clf.Fit(prep.Matrix, prep.Labels); err != nil {
		log.Error().Err(err).
			Int("rows", len(prep.Matrix)).
			Strs("features", prep.Features).
			Msg("classifier fit failed")
		if e.metrics != nil {
			e.metrics.TrainingFailuresInc()
		}
		return fmt.Errorf("fit classifier: %w", err)
	}

	e.clf = clf
	e.modelFeatures = prep.Features
	e.importance = classify.RankImportances(prep.Features, clf.FeatureImportances())

	log.Info().
		Int("rows", len(prep.Matrix)).
		Int("positive", positives).
		Int("negative", len(prep.Matrix)-positives).
		Strs("features", prep.Features).
		Msg("anomaly model trained")
	logTopImportances(e.importance)

	if e.metrics != nil {
		e.metrics.TrainingsInc()
		e.metrics.TrainDurationObserve(time.Since(start).Seconds())
	}
	return nil
}

func logTopImportances(ranked []classify.Importance) {
	n := len(ranked)
	if n > 3 {
		n = 3
	}
	ev := log.Info()
	for _, imp := range ranked[:n] {
		ev = ev.Float64(imp.Feature, imp.Weight)
	}
	ev.Msg("top feature importances")
}
