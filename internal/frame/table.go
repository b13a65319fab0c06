// Package frame provides a small row-indexed table for daily feature data.
// Rows are keyed by date, columns hold loosely typed cells that may arrive
// as numbers, unparsed text, or gaps. The scoring engine coerces cells to
// numeric values during preparation rather than at load time.
package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind describes what a cell holds.
type Kind int

const (
	KindMissing Kind = iota
	KindNumeric
	KindText
)

// Value is one cell of a table column.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

// Num returns a numeric cell.
func Num(v float64) Value {
	return Value{Kind: KindNumeric, Num: v}
}

// Text returns a textual cell. Text cells may still convert to numbers
// during preparation.
func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// Missing returns an empty cell.
func Missing() Value {
	return Value{Kind: KindMissing}
}

// IsMissing reports whether the cell holds no value. A numeric NaN counts
// as missing: it marks gaps the same way the source data does.
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing || (v.Kind == KindNumeric && math.IsNaN(v.Num))
}

// Float returns the cell as a usable number. Text cells are parsed;
// missing cells, NaN and unparsable text report ok=false.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumeric:
		if math.IsNaN(v.Num) {
			return 0, false
		}
		return v.Num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Table is a date-indexed table. Column lengths always equal the index
// length; column order is preserved from insertion.
type Table struct {
	index []time.Time
	order []string
	cols  map[string][]Value
}

// New creates a table over the given date index.
func New(index []time.Time) *Table {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Table{
		index: idx,
		cols:  make(map[string][]Value),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.index)
}

// Index returns a copy of the row dates in order.
func (t *Table) Index() []time.Time {
	out := make([]time.Time, len(t.index))
	copy(out, t.index)
	return out
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// SetColumn inserts or replaces a column. The cell count must match the
// row count.
func (t *Table) SetColumn(name string, cells []Value) error {
	if len(cells) != len(t.index) {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, len(cells), len(t.index))
	}
	if _, exists := t.cols[name]; !exists {
		t.order = append(t.order, name)
	}
	c := make([]Value, len(cells))
	copy(c, cells)
	t.cols[name] = c
	return nil
}

// FillColumn inserts or replaces a column with every cell set to v.
func (t *Table) FillColumn(name string, v Value) {
	cells := make([]Value, len(t.index))
	for i := range cells {
		cells[i] = v
	}
	// Length always matches, error cannot occur.
	_ = t.SetColumn(name, cells)
}

// Set writes a single cell.
func (t *Table) Set(row int, name string, v Value) error {
	c, ok := t.cols[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if row < 0 || row >= len(c) {
		return fmt.Errorf("row %d out of range [0,%d)", row, len(c))
	}
	c[row] = v
	return nil
}

// Cell reads a single cell.
func (t *Table) Cell(row int, name string) (Value, bool) {
	c, ok := t.cols[name]
	if !ok || row < 0 || row >= len(c) {
		return Value{}, false
	}
	return c[row], true
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := New(t.index)
	for _, name := range t.order {
		// Column exists by construction.
		_ = out.SetColumn(name, t.cols[name])
	}
	return out
}
