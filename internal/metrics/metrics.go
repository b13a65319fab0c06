// Package metrics provides Prometheus metrics for the anomaly scoring
// engine: training activity, scoring throughput, degraded outcomes and
// model age, exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the scoring engine.
type Metrics struct {
	// Training metrics
	TrainingsTotal   prometheus.Counter   // Successful model trainings
	TrainingFailures prometheus.Counter   // Failed model trainings
	TrainDuration    prometheus.Histogram // Training duration in seconds

	// Scoring metrics
	RowsScored        prometheus.Counter   // Rows that received computed scores
	RowsDropped       prometheus.Counter   // Rows dropped during feature preparation
	ScoringFailures   prometheus.Counter   // Batches that degraded to default scores
	AnomaliesDetected prometheus.Counter   // Rows predicted anomalous
	PredictDuration   prometheus.Histogram // Prediction duration in seconds

	// Model metrics
	ModelAge prometheus.Gauge // Age of the persisted model file in seconds
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, which keeps
// test runs isolated from the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		TrainingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_trainings_total",
			Help: "Number of successful model trainings",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_training_failures_total",
			Help: "Number of failed model trainings",
		}),
		TrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anomaly_train_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		RowsScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_rows_scored_total",
			Help: "Number of rows that received computed anomaly scores",
		}),
		RowsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_rows_dropped_total",
			Help: "Number of rows dropped during feature preparation",
		}),
		ScoringFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_scoring_failures_total",
			Help: "Number of scoring batches that degraded to default outputs",
		}),
		AnomaliesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_detections_total",
			Help: "Number of rows predicted anomalous",
		}),
		PredictDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anomaly_predict_duration_seconds",
			Help:    "Prediction duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "anomaly_model_age_seconds",
			Help: "Age of the persisted model file in seconds",
		}),
	}
}
