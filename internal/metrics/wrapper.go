package metrics

// Wrapper adapts Metrics to the narrow interface the scoring engine
// depends on, keeping the engine free of a Prometheus import.
type Wrapper struct {
	m *Metrics
}

// NewWrapper wraps the given metrics.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) TrainingsInc() {
	w.m.TrainingsTotal.Inc()
}

func (w *Wrapper) TrainingFailuresInc() {
	w.m.TrainingFailures.Inc()
}

func (w *Wrapper) TrainDurationObserve(seconds float64) {
	w.m.TrainDuration.Observe(seconds)
}

func (w *Wrapper) RowsScoredAdd(n float64) {
	w.m.RowsScored.Add(n)
}

func (w *Wrapper) RowsDroppedAdd(n float64) {
	if n > 0 {
		w.m.RowsDropped.Add(n)
	}
}

func (w *Wrapper) ScoringFailuresInc() {
	w.m.ScoringFailures.Inc()
}

func (w *Wrapper) AnomaliesDetectedAdd(n float64) {
	if n > 0 {
		w.m.AnomaliesDetected.Add(n)
	}
}

func (w *Wrapper) PredictDurationObserve(seconds float64) {
	w.m.PredictDuration.Observe(seconds)
}

func (w *Wrapper) ModelAgeSet(seconds float64) {
	w.m.ModelAge.Set(seconds)
}
