package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-anomaly/internal/frame"
)

// scoredTable builds a hand-scored table spanning two years with three
// anomalies of graded severity.
func scoredTable(t *testing.T) *frame.Table {
	t.Helper()
	index := []time.Time{
		time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	tbl := frame.New(index)

	set := func(name string, vals ...float64) {
		cells := make([]frame.Value, len(vals))
		for i, v := range vals {
			cells[i] = frame.Num(v)
		}
		require.NoError(t, tbl.SetColumn(name, cells))
	}
	set(ColPrediction, 1, 0, 1, 1, 0)
	set(ColSeverity, 0.02, 0, 0.08, 0.05, 0)
	set("return", 0.10, 0.001, -0.20, 0.15, 0.002)
	set("volatility", 0.8, 0.2, 0.9, 0.7, 0.1)
	set("relative_volume", 4, 1, 6, 5, 1)
	return tbl
}

func TestAnalyze_PredictionColumnMissing(t *testing.T) {
	e := New()
	_, err := e.Analyze(featureTable(10))
	assert.ErrorIs(t, err, ErrPredictionMissing)
}

func TestAnalyze_Report(t *testing.T) {
	e := New()
	report, err := e.Analyze(scoredTable(t))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.InDelta(t, 60.0, report.Percentage, 1e-9)
	assert.Equal(t, map[int]int{2021: 2, 2022: 1}, report.PerYear)

	require.NotNil(t, report.MeanReturn)
	assert.InDelta(t, (0.10-0.20+0.15)/3, *report.MeanReturn, 1e-9)
	require.NotNil(t, report.MeanVolatility)
	assert.InDelta(t, (0.8+0.9+0.7)/3, *report.MeanVolatility, 1e-9)

	require.Len(t, report.Top, 3)
	assert.Equal(t, 0.08, report.Top[0].Severity)
	assert.Equal(t, -0.20, report.Top[0].Return)
	assert.Equal(t, 6.0, report.Top[0].RelativeVolume)
	assert.Equal(t, 0.05, report.Top[1].Severity)
	assert.Equal(t, 0.02, report.Top[2].Severity)
}

func TestAnalyze_TopIsCapped(t *testing.T) {
	index := tradingDays(8)
	tbl := frame.New(index)
	preds := make([]frame.Value, 8)
	sevs := make([]frame.Value, 8)
	for i := range preds {
		preds[i] = frame.Num(1)
		sevs[i] = frame.Num(float64(i))
	}
	require.NoError(t, tbl.SetColumn(ColPrediction, preds))
	require.NoError(t, tbl.SetColumn(ColSeverity, sevs))

	e := New()
	report, err := e.Analyze(tbl)
	require.NoError(t, err)

	require.Len(t, report.Top, 5)
	assert.Equal(t, 7.0, report.Top[0].Severity)
	assert.Equal(t, 3.0, report.Top[4].Severity)
}

func TestAnalyze_MissingSourceColumns(t *testing.T) {
	tbl := frame.New(tradingDays(2))
	require.NoError(t, tbl.SetColumn(ColPrediction, []frame.Value{frame.Num(1), frame.Num(0)}))

	e := New()
	report, err := e.Analyze(tbl)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Nil(t, report.MeanReturn)
	assert.Nil(t, report.MeanVolatility)
	assert.Empty(t, report.Top)
}

func TestAnalyze_MeanNilWithoutUsableValues(t *testing.T) {
	tbl := frame.New(tradingDays(3))
	require.NoError(t, tbl.SetColumn(ColPrediction, []frame.Value{
		frame.Num(0), frame.Num(1), frame.Num(0),
	}))
	// The column exists but the only anomalous row has no usable value.
	require.NoError(t, tbl.SetColumn("return", []frame.Value{
		frame.Num(0.01), frame.Missing(), frame.Num(0.02),
	}))
	require.NoError(t, tbl.SetColumn("volatility", []frame.Value{
		frame.Num(0.1), frame.Num(0.2), frame.Num(0.3),
	}))

	e := New()
	report, err := e.Analyze(tbl)
	require.NoError(t, err)

	assert.Nil(t, report.MeanReturn)
	require.NotNil(t, report.MeanVolatility)
	assert.InDelta(t, 0.2, *report.MeanVolatility, 1e-9)
}

func TestAnalyze_NoAnomalies(t *testing.T) {
	tbl := frame.New(tradingDays(3))
	require.NoError(t, tbl.SetColumn(ColPrediction, []frame.Value{
		frame.Num(0), frame.Num(0), frame.Num(0),
	}))

	e := New()
	report, err := e.Analyze(tbl)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0.0, report.Percentage)
	assert.Empty(t, report.PerYear)
	assert.Empty(t, report.Top)
}
