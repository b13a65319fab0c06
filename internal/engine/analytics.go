package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"market-anomaly/internal/frame"
)

// Event summarizes one detected anomaly, ordered by severity in reports.
type Event struct {
	Date           time.Time `json:"date"`
	Return         float64   `json:"return"`
	RelativeVolume float64   `json:"relative_volume"`
	Severity       float64   `json:"severity"`
}

// Report summarizes the anomalies in a scored table. MeanReturn and
// MeanVolatility are nil when the source column is absent. Error is set
// instead of the statistics when report computation itself failed.
type Report struct {
	Total          int         `json:"total"`
	Percentage     float64     `json:"percentage"`
	PerYear        map[int]int `json:"per_year"`
	MeanReturn     *float64    `json:"mean_return,omitempty"`
	MeanVolatility *float64    `json:"mean_volatility,omitempty"`
	Top            []Event     `json:"top"`
	Error          string      `json:"error,omitempty"`
}

// maxTopEvents caps the most-severe-event list in a report.
const maxTopEvents = 5

// Analyze summarizes the anomalies in a scored table. A table that was
// never scored is a caller error and fails with ErrPredictionMissing;
// anything going wrong inside the summary itself degrades to an
// error-shaped report instead of propagating.
func (e *Engine) Analyze(t *frame.Table) (report *Report, err error) {
	if !t.HasColumn(ColPrediction) {
		log.Error().Str("column", ColPrediction).Msg("scored table is missing the prediction column")
		return nil, fmt.Errorf("%w: %q", ErrPredictionMissing, ColPrediction)
	}

	// Analytics is diagnostic and must never crash a calling pipeline.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("anomaly analysis failed")
			report = &Report{Error: fmt.Sprint(r), PerYear: map[int]int{}}
			err = nil
		}
	}()

	preds, _ := t.Column(ColPrediction)
	var anomalous []int
	for row, cell := range preds {
		if v, ok := cell.Float(); ok && v == 1 {
			anomalous = append(anomalous, row)
		}
	}

	report = &Report{
		Total:   len(anomalous),
		PerYear: make(map[int]int),
	}
	if t.Len() > 0 {
		report.Percentage = float64(len(anomalous)) / float64(t.Len()) * 100
	}
	index := t.Index()
	for _, row := range anomalous {
		report.PerYear[index[row].Year()]++
	}
	report.MeanReturn = columnMean(t, "return", anomalous)
	report.MeanVolatility = columnMean(t, "volatility", anomalous)
	report.Top = topEvents(t, anomalous)

	log.Info().
		Int("total", report.Total).
		Float64("percentage", report.Percentage).
		Msg("anomaly analysis complete")
	return report, nil
}

// columnMean averages the named column over the given rows, skipping
// unusable cells. Nil when the column is absent or no row has a usable
// value, so "no data" never reads as a zero mean.
func columnMean(t *frame.Table, name string, rows []int) *float64 {
	if !t.HasColumn(name) {
		return nil
	}
	var sum float64
	var count int
	for _, row := range rows {
		cell, _ := t.Cell(row, name)
		if v, ok := cell.Float(); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

func topEvents(t *frame.Table, rows []int) []Event {
	if !t.HasColumn(ColSeverity) || len(rows) == 0 {
		return nil
	}

	events := make([]Event, 0, len(rows))
	index := t.Index()
	for _, row := range rows {
		ev := Event{Date: index[row]}
		if cell, ok := t.Cell(row, ColSeverity); ok {
			if v, usable := cell.Float(); usable {
				ev.Severity = v
			}
		}
		if cell, ok := t.Cell(row, "return"); ok {
			ev.Return, _ = cell.Float()
		}
		if cell, ok := t.Cell(row, "relative_volume"); ok {
			ev.RelativeVolume, _ = cell.Float()
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Severity > events[j].Severity
	})
	if len(events) > maxTopEvents {
		events = events[:maxTopEvents]
	}
	return events
}
