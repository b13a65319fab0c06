package engine

import (
	"errors"
	"math/rand"
	"time"

	"market-anomaly/internal/classify"
	"market-anomaly/internal/frame"
)

func tradingDays(n int) []time.Time {
	index := make([]time.Time, n)
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range index {
		index[i] = start.AddDate(0, 0, i)
	}
	return index
}

// featureTable builds n rows with all eight recognized features and a
// 5% positive label rate. Anomalous rows carry exaggerated return,
// volatility and relative volume so a classifier can separate them.
func featureTable(n int) *frame.Table {
	rng := rand.New(rand.NewSource(11))
	t := frame.New(tradingDays(n))

	cols := make(map[string][]frame.Value, len(FeatureVocabulary)+1)
	for _, name := range FeatureVocabulary {
		cols[name] = make([]frame.Value, n)
	}
	labels := make([]frame.Value, n)

	for i := 0; i < n; i++ {
		anomalous := i%20 == 0
		ret := 0.002 * rng.NormFloat64()
		vol := 0.15 + 0.05*rng.Float64()
		relVol := 0.8 + 0.4*rng.Float64()
		if anomalous {
			ret = 0.12 + 0.03*rng.Float64()
			vol = 0.85 + 0.1*rng.Float64()
			relVol = 4 + rng.Float64()
			labels[i] = frame.Num(1)
		} else {
			labels[i] = frame.Num(0)
		}

		cols["return"][i] = frame.Num(ret)
		cols["volatility"][i] = frame.Num(vol)
		cols["rsi"][i] = frame.Num(30 + 40*rng.Float64())
		cols["macd"][i] = frame.Num(rng.NormFloat64())
		cols["macd_diff"][i] = frame.Num(0.5 * rng.NormFloat64())
		cols["relative_volume"][i] = frame.Num(relVol)
		cols["bollinger_band_width"][i] = frame.Num(0.02 + 0.01*rng.Float64())
		cols["log_return"][i] = frame.Num(ret * 0.99)
	}

	for _, name := range FeatureVocabulary {
		if err := t.SetColumn(name, cols[name]); err != nil {
			panic(err)
		}
	}
	if err := t.SetColumn(LabelColumn, labels); err != nil {
		panic(err)
	}
	return t
}

// dropColumn returns a copy of the table without the named column.
func dropColumn(t *frame.Table, name string) *frame.Table {
	out := frame.New(t.Index())
	for _, col := range t.Columns() {
		if col == name {
			continue
		}
		cells, _ := t.Column(col)
		if err := out.SetColumn(col, cells); err != nil {
			panic(err)
		}
	}
	return out
}

// stubClassifier is a deterministic classifier for unit tests.
type stubClassifier struct {
	proba  float64
	fitErr error
}

func (s *stubClassifier) Fit([][]float64, []int) error {
	return s.fitErr
}

func (s *stubClassifier) Predict(features [][]float64) ([]int, error) {
	preds := make([]int, len(features))
	for i := range preds {
		if s.proba >= 0.5 {
			preds[i] = 1
		}
	}
	return preds, nil
}

func (s *stubClassifier) PredictProba(features [][]float64) ([]float64, error) {
	probs := make([]float64, len(features))
	for i := range probs {
		probs[i] = s.proba
	}
	return probs, nil
}

func (s *stubClassifier) FeatureImportances() []float64 {
	return nil
}

// faultyClassifier fails every inference call.
type faultyClassifier struct{}

func (faultyClassifier) Fit([][]float64, []int) error { return nil }

func (faultyClassifier) Predict([][]float64) ([]int, error) {
	return nil, errors.New("classifier exploded")
}

func (faultyClassifier) PredictProba([][]float64) ([]float64, error) {
	return nil, errors.New("classifier exploded")
}

func (faultyClassifier) FeatureImportances() []float64 { return nil }

// recordingMetrics counts engine metric calls.
type recordingMetrics struct {
	trainings        int
	trainingFailures int
	rowsScored       float64
	rowsDropped      float64
	scoringFailures  int
	anomalies        float64
}

func (m *recordingMetrics) TrainingsInc()                  { m.trainings++ }
func (m *recordingMetrics) TrainingFailuresInc()           { m.trainingFailures++ }
func (m *recordingMetrics) RowsScoredAdd(n float64)        { m.rowsScored += n }
func (m *recordingMetrics) RowsDroppedAdd(n float64)       { m.rowsDropped += n }
func (m *recordingMetrics) ScoringFailuresInc()            { m.scoringFailures++ }
func (m *recordingMetrics) AnomaliesDetectedAdd(n float64) { m.anomalies += n }
func (m *recordingMetrics) TrainDurationObserve(float64)   {}
func (m *recordingMetrics) PredictDurationObserve(float64) {}

var _ classify.Classifier = (*stubClassifier)(nil)
var _ classify.Classifier = faultyClassifier{}
var _ MetricsInterface = (*recordingMetrics)(nil)
