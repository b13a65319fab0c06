package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-anomaly/internal/frame"
)

func TestPrepare_NoRecognizedFeatures(t *testing.T) {
	tbl := frame.New(tradingDays(5))
	require.NoError(t, tbl.SetColumn("open", []frame.Value{
		frame.Num(1), frame.Num(2), frame.Num(3), frame.Num(4), frame.Num(5),
	}))

	e := New()
	_, err := e.Prepare(tbl, false)
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestPrepare_LabelMissing(t *testing.T) {
	tbl := dropColumn(featureTable(20), LabelColumn)

	e := New()
	_, err := e.Prepare(tbl, true)
	assert.ErrorIs(t, err, ErrLabelMissing)

	// Without the label requirement the same table prepares fine.
	prep, err := e.Prepare(tbl, false)
	require.NoError(t, err)
	assert.Len(t, prep.Rows, 20)
	assert.Empty(t, prep.Labels)
}

func TestPrepare_VocabularyOrderAndSubset(t *testing.T) {
	tbl := frame.New(tradingDays(3))
	// Insert out of vocabulary order, with an unrecognized extra.
	require.NoError(t, tbl.SetColumn("rsi", []frame.Value{frame.Num(50), frame.Num(60), frame.Num(70)}))
	require.NoError(t, tbl.SetColumn("close", []frame.Value{frame.Num(1), frame.Num(2), frame.Num(3)}))
	require.NoError(t, tbl.SetColumn("return", []frame.Value{frame.Num(0.01), frame.Num(-0.02), frame.Num(0.005)}))

	e := New()
	prep, err := e.Prepare(tbl, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"return", "rsi"}, prep.Features)
	assert.Equal(t, []string{"return", "rsi"}, e.ActiveFeatures())
	require.Len(t, prep.Matrix, 3)
	assert.Equal(t, []float64{0.01, 50}, prep.Matrix[0])
}

func TestPrepare_DropsUnusableRows(t *testing.T) {
	tbl := frame.New(tradingDays(4))
	require.NoError(t, tbl.SetColumn("return", []frame.Value{
		frame.Num(0.01),
		frame.Missing(),
		frame.Text("oops"),
		frame.Text("0.04"), // coercible text survives
	}))
	require.NoError(t, tbl.SetColumn("volatility", []frame.Value{
		frame.Num(0.2), frame.Num(0.3), frame.Num(0.4), frame.Num(math.NaN()),
	}))

	e := New()
	prep, err := e.Prepare(tbl, false)
	require.NoError(t, err)

	// Row 1 is missing, row 2 unparsable, row 3 NaN in volatility.
	require.Len(t, prep.Rows, 1)
	assert.Equal(t, 0, prep.Rows[0])
	assert.Equal(t, []float64{0.01, 0.2}, prep.Matrix[0])
}

func TestPrepare_CoercesTextLabels(t *testing.T) {
	tbl := frame.New(tradingDays(3))
	require.NoError(t, tbl.SetColumn("return", []frame.Value{
		frame.Num(0.01), frame.Num(0.02), frame.Num(0.03),
	}))
	require.NoError(t, tbl.SetColumn(LabelColumn, []frame.Value{
		frame.Text("1"), frame.Num(0), frame.Missing(),
	}))

	e := New()
	prep, err := e.Prepare(tbl, true)
	require.NoError(t, err)

	// The row with an unusable label is dropped.
	require.Len(t, prep.Rows, 2)
	assert.Equal(t, []int{1, 0}, prep.Labels)
}

func TestPrepare_ReportsDroppedRows(t *testing.T) {
	m := &recordingMetrics{}
	tbl := frame.New(tradingDays(2))
	require.NoError(t, tbl.SetColumn("rsi", []frame.Value{frame.Num(55), frame.Missing()}))

	e := New(WithMetrics(m))
	prep, err := e.Prepare(tbl, false)
	require.NoError(t, err)
	assert.Len(t, prep.Rows, 1)
	assert.Equal(t, 1.0, m.rowsDropped)
}

func TestCoerceColumn_Report(t *testing.T) {
	values, report := coerceColumn("rsi", []frame.Value{
		frame.Num(1), frame.Text("2"), frame.Text("junk"), frame.Missing(),
	})
	assert.Equal(t, 1, report.Numeric)
	assert.Equal(t, 1, report.Coerced)
	assert.Equal(t, 2, report.Unusable)
	assert.Equal(t, 1.0, values[0])
	assert.Equal(t, 2.0, values[1])
	assert.True(t, math.IsNaN(values[2]))
	assert.True(t, math.IsNaN(values[3]))
}
