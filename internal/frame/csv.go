package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted for the index column, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ReadCSV reads a table from CSV. The first column is the date index, the
// header names the remaining columns. Empty cells become missing values,
// cells that parse as floats become numeric, everything else stays text.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("csv needs a date column and at least one data column, got %d columns", len(header))
	}

	names := header[1:]
	var index []time.Time
	cells := make([][]Value, len(names))

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("csv line %d has %d fields, expected %d", line, len(record), len(header))
		}

		date, err := parseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		index = append(index, date)

		for i, raw := range record[1:] {
			cells[i] = append(cells[i], parseCell(raw))
		}
	}

	t := New(index)
	for i, name := range names {
		if err := t.SetColumn(name, cells[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteCSV writes the table as CSV with the date index in the first
// column. Missing cells and NaN are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	names := t.Columns()
	header := append([]string{"date"}, names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for row, date := range t.Index() {
		record := make([]string, 0, len(header))
		record = append(record, date.Format("2006-01-02"))
		for _, name := range names {
			cell, _ := t.Cell(row, name)
			record = append(record, formatCell(cell))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseCell(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Missing()
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Num(f)
	}
	return Text(raw)
}

func formatCell(v Value) string {
	switch v.Kind {
	case KindNumeric:
		if math.IsNaN(v.Num) {
			return ""
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindText:
		return v.Text
	default:
		return ""
	}
}
