package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported indicates a file format the reader does not handle.
var ErrUnsupported = errors.New("unsupported file format")

// CellKind is the parsed value kind of a single cell.
type CellKind int

const (
	KindMissing CellKind = iota
	KindNumber
	KindTime
	KindBool
	KindText
)

// Cell is one typed value in a table. Only the field matching Kind is set.
type Cell struct {
	Kind CellKind
	Num  float64
	Time time.Time
	Bool bool
	Text string
}

// Table is a parsed tabular dataset: a header plus row-major typed records.
type Table struct {
	Name    string
	Headers []string
	Records [][]Cell
}

// NumRows returns the number of data rows (header excluded).
func (t *Table) NumRows() int { return len(t.Records) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Headers) }

// Column returns all cells of column i in row order.
func (t *Table) Column(i int) []Cell {
	out := make([]Cell, 0, len(t.Records))
	for _, rec := range t.Records {
		if i < len(rec) {
			out = append(out, rec[i])
		} else {
			out = append(out, Cell{Kind: KindMissing})
		}
	}
	return out
}

// SampleRecords returns up to n leading rows as header→value records for UI
// preview. Missing cells map to nil.
func (t *Table) SampleRecords(n int) []map[string]any {
	if n > len(t.Records) {
		n = len(t.Records)
	}
	out := make([]map[string]any, 0, n)
	for _, rec := range t.Records[:n] {
		row := make(map[string]any, len(t.Headers))
		for i, h := range t.Headers {
			if i >= len(rec) {
				row[h] = nil
				continue
			}
			row[h] = rec[i].Value()
		}
		out = append(out, row)
	}
	return out
}

// Value returns the cell's native value, or nil when missing.
func (c Cell) Value() any {
	switch c.Kind {
	case KindNumber:
		return c.Num
	case KindTime:
		return c.Time.Format("2006-01-02T15:04:05")
	case KindBool:
		return c.Bool
	case KindText:
		return c.Text
	default:
		return nil
	}
}

// String returns the cell value coerced to a string, the way frequency-table
// keys are built. Missing cells return "".
func (c Cell) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case KindTime:
		return c.Time.Format("2006-01-02T15:04:05")
	case KindBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case KindText:
		return c.Text
	default:
		return ""
	}
}

// Read parses raw uploaded bytes into a Table, choosing the reader by file
// extension. Unsupported extensions return ErrUnsupported.
func Read(filename string, data []byte) (*Table, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".tsv"):
		tbl, err := ReadCSV(data, sniffDelimiter(lower))
		if err != nil {
			return nil, err
		}
		tbl.Name = filename
		return tbl, nil
	case strings.HasSuffix(lower, ".xlsx"):
		tbl, err := ReadXLSX(data)
		if err != nil {
			return nil, err
		}
		tbl.Name = filename
		return tbl, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// parseCell types a raw string value. Precedence matters: numeric wins over
// date, date over boolean, so a 0/1 column stays numeric.
func parseCell(raw string) Cell {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Cell{Kind: KindMissing}
	}
	if x, err := strconv.ParseFloat(v, 64); err == nil {
		return Cell{Kind: KindNumber, Num: x}
	}
	for _, l := range timeLayouts {
		if ts, err := time.Parse(l, v); err == nil {
			return Cell{Kind: KindTime, Time: ts}
		}
	}
	switch strings.ToLower(v) {
	case "true":
		return Cell{Kind: KindBool, Bool: true}
	case "false":
		return Cell{Kind: KindBool, Bool: false}
	}
	return Cell{Kind: KindText, Text: v}
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
