package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"market-anomaly/internal/frame"
)

// Predict scores every row of the table, returning a copy of the input
// with anomaly_probability, anomaly_prediction and anomaly_severity
// columns aligned by index. Only rows surviving preparation receive
// computed values; the rest stay NaN. Two degraded outcomes are kept
// distinct: when nothing is scorable all three columns are NaN, and when
// inference itself faults all three columns are 0 for every row. Predict
// never returns an error; faults are logged and counted.
func (e *Engine) Predict(t *frame.Table) *frame.Table {
	start := time.Now()
	result := t.Clone()

	prep, err := e.Prepare(t, false)
	if err != nil {
		log.Error().Err(err).Msg("prediction failed, filling default scores")
		return e.degrade(result)
	}

	if len(prep.Rows) == 0 {
		log.Warn().Int("rows", t.Len()).Msg("no valid rows to score after cleaning")
		fillScoreColumns(result, frame.Num(math.NaN()))
		return result
	}

	if e.clf == nil {
		log.Error().Msg("no trained model, filling default scores")
		return e.degrade(result)
	}
	if len(e.modelFeatures) > 0 && !sameFeatures(e.modelFeatures, prep.Features) {
		log.Error().
			Strs("model_features", e.modelFeatures).
			Strs("input_features", prep.Features).
			Msg("input features do not match trained model, filling default scores")
		return e.degrade(result)
	}

	probs, err := e.clf.PredictProba(prep.Matrix)
	if err != nil {
		log.Error().Err(err).Int("rows", len(prep.Matrix)).Msg("probability inference failed, filling default scores")
		return e.degrade(result)
	}
	preds, err := e.clf.Predict(prep.Matrix)
	if err != nil || len(probs) != len(prep.Rows) || len(preds) != len(prep.Rows) {
		log.Error().Err(err).
			Int("rows", len(prep.Rows)).
			Int("probabilities", len(probs)).
			Int("predictions", len(preds)).
			Msg("inference failed, filling default scores")
		return e.degrade(result)
	}

	fillScoreColumns(result, frame.Num(math.NaN()))

	var anomalies int
	hasReturn := result.HasColumn("return")
	for i, row := range prep.Rows {
		// Rows exist in the clone, cell writes cannot fail.
		_ = result.Set(row, ColProbability, frame.Num(probs[i]))
		_ = result.Set(row, ColPrediction, frame.Num(float64(preds[i])))
		anomalies += preds[i]

		if !hasReturn {
			continue
		}
		cell, _ := result.Cell(row, "return")
		if rv, ok := cell.Float(); ok {
			_ = result.Set(row, ColSeverity, frame.Num(probs[i]*math.Abs(rv)/severityDivisor))
		}
	}

	log.Info().
		Int("scored", len(prep.Rows)).
		Int("anomalies", anomalies).
		Msg("anomaly scores computed")

	if e.metrics != nil {
		e.metrics.RowsScoredAdd(float64(len(prep.Rows)))
		e.metrics.AnomaliesDetectedAdd(float64(anomalies))
		e.metrics.PredictDurationObserve(time.Since(start).Seconds())
	}
	return result
}

// TrainAndPredict composes Train and Predict. When either step fails the
// original table comes back with all three score columns defaulted to 0
// instead of an error.
func (e *Engine) TrainAndPredict(t *frame.Table) *frame.Table {
	if err := e.Train(t); err != nil {
		log.Error().Err(err).Msg("train-and-predict failed, filling default scores")
		return e.degrade(t.Clone())
	}
	return e.Predict(t)
}

func (e *Engine) degrade(result *frame.Table) *frame.Table {
	if e.metrics != nil {
		e.metrics.ScoringFailuresInc()
	}
	fillScoreColumns(result, frame.Num(0))
	return result
}

func fillScoreColumns(t *frame.Table, v frame.Value) {
	t.FillColumn(ColProbability, v)
	t.FillColumn(ColPrediction, v)
	t.FillColumn(ColSeverity, v)
}

func sameFeatures(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
