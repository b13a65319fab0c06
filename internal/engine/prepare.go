package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"market-anomaly/internal/frame"
)

// Prepared is the cleaned feature matrix extracted from an input table.
// Rows holds the original table positions of the surviving rows, so
// predictions can be written back aligned by index.
type Prepared struct {
	Features []string
	Rows     []int
	Index    []time.Time
	Matrix   [][]float64
	Labels   []int
}

// ColumnReport describes the outcome of coercing one feature column.
type ColumnReport struct {
	Name     string
	Numeric  int
	Coerced  int
	Unusable int
}

// Prepare selects the recognized feature columns present in the table,
// coerces them to numeric and drops rows that are unusable in any active
// column. With requireLabel it also extracts the binary label column.
// The active feature set is recomputed fresh on every call and cached on
// the engine for importance reporting and inference validation.
func (e *Engine) Prepare(t *frame.Table, requireLabel bool) (*Prepared, error) {
	var active []string
	for _, name := range FeatureVocabulary {
		if t.HasColumn(name) {
			active = append(active, name)
		}
	}
	if len(active) == 0 {
		log.Error().Strs("vocabulary", FeatureVocabulary).Msg("no recognized feature columns in input")
		return nil, ErrNoFeatures
	}

	var labels []frame.Value
	if requireLabel {
		cells, ok := t.Column(LabelColumn)
		if !ok {
			log.Error().Str("column", LabelColumn).Msg("label column not found in training data")
			return nil, fmt.Errorf("%w: %q", ErrLabelMissing, LabelColumn)
		}
		labels = cells
	}

	// Two-phase coercion: each column is converted independently and
	// reported on, then rows unusable in any active column are dropped.
	columns := make([][]float64, len(active))
	for i, name := range active {
		cells, _ := t.Column(name)
		values, report := coerceColumn(name, cells)
		columns[i] = values
		if report.Unusable > 0 {
			log.Warn().
				Str("column", report.Name).
				Int("numeric", report.Numeric).
				Int("coerced", report.Coerced).
				Int("unusable", report.Unusable).
				Msg("feature column has unusable values, affected rows will be dropped")
		}
	}

	prep := &Prepared{Features: active}
	index := t.Index()
	for row := 0; row < t.Len(); row++ {
		usable := true
		for _, col := range columns {
			if math.IsNaN(col[row]) {
				usable = false
				break
			}
		}
		if !usable {
			continue
		}

		var label int
		if requireLabel {
			v, ok := labels[row].Float()
			if !ok {
				continue
			}
			if v != 0 {
				label = 1
			}
		}

		featRow := make([]float64, len(columns))
		for i, col := range columns {
			featRow[i] = col[row]
		}
		prep.Rows = append(prep.Rows, row)
		prep.Index = append(prep.Index, index[row])
		prep.Matrix = append(prep.Matrix, featRow)
		if requireLabel {
			prep.Labels = append(prep.Labels, label)
		}
	}

	if e.metrics != nil {
		e.metrics.RowsDroppedAdd(float64(t.Len() - len(prep.Rows)))
	}

	e.features = active
	return prep, nil
}

// coerceColumn converts one column to floats. Unusable cells become NaN;
// the report counts how each cell converted.
func coerceColumn(name string, cells []frame.Value) ([]float64, ColumnReport) {
	report := ColumnReport{Name: name}
	values := make([]float64, len(cells))
	for i, cell := range cells {
		v, ok := cell.Float()
		if !ok {
			values[i] = math.NaN()
			report.Unusable++
			continue
		}
		values[i] = v
		if cell.Kind == frame.KindText {
			report.Coerced++
		} else {
			report.Numeric++
		}
	}
	return values, report
}
