// Package profile classifies dataset columns into semantic types and computes
// type-appropriate summary statistics.
package profile

import (
	"math"
	"sort"
	"strings"

	"github.com/dataviz-ai/dataviz-go/internal/dataset"
)

// SemanticType classifies a column's values. Mutually exclusive, assigned once.
type SemanticType string

const (
	TypeNumeric     SemanticType = "numeric"
	TypeDate        SemanticType = "date"
	TypeBoolean     SemanticType = "boolean"
	TypeCategorical SemanticType = "categorical"
)

// Column is the per-column profile: semantic type plus the matching summary.
// ValueCounts is only set for categorical columns with at most
// MaxValueCountCardinality distinct values.
type Column struct {
	Name        string         `json:"name"`
	Type        SemanticType   `json:"type"`
	UniqueCount int            `json:"unique_count"`
	NACount     int            `json:"na_count"`
	Summary     Summary        `json:"summary,omitempty"`
	ValueCounts map[string]int `json:"value_counts,omitempty"`
}

// MaxValueCountCardinality caps the categorical frequency table; above it no
// table is attached, so response size stays bounded.
const MaxValueCountCardinality = 50

// Summary is the type-tagged statistics union. The concrete type is determined
// by the column's semantic type; categorical columns carry no summary.
type Summary interface {
	semanticType() SemanticType
}

// NumericSummary holds numeric statistics. Fields are nil when every value in
// the column is missing (the reducers are undefined on empty data).
type NumericSummary struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
}

func (NumericSummary) semanticType() SemanticType { return TypeNumeric }

// DateSummary holds the date range as ISO strings, nil when all missing.
type DateSummary struct {
	MinDate *string `json:"min_date"`
	MaxDate *string `json:"max_date"`
}

func (DateSummary) semanticType() SemanticType { return TypeDate }

// BoolSummary counts true and false values.
type BoolSummary struct {
	TrueCount  int `json:"true_count"`
	FalseCount int `json:"false_count"`
}

func (BoolSummary) semanticType() SemanticType { return TypeBoolean }

// Dataset profiles every column of a table, in column order.
func Dataset(tbl *dataset.Table) []Column {
	out := make([]Column, 0, tbl.NumCols())
	for i, name := range tbl.Headers {
		out = append(out, profileColumn(name, tbl.Column(i)))
	}
	return out
}

func profileColumn(name string, cells []dataset.Cell) Column {
	col := Column{Name: name}

	var numCnt, timeCnt, boolCnt, textCnt int
	unique := map[string]struct{}{}
	for _, c := range cells {
		switch c.Kind {
		case dataset.KindMissing:
			col.NACount++
			continue
		case dataset.KindNumber:
			numCnt++
		case dataset.KindTime:
			timeCnt++
		case dataset.KindBool:
			boolCnt++
		case dataset.KindText:
			textCnt++
		}
		unique[c.String()] = struct{}{}
	}
	col.UniqueCount = len(unique)
	nonNull := numCnt + timeCnt + boolCnt + textCnt

	// Precedence: numeric, then date, then boolean; everything mixed or
	// textual is categorical. An all-missing column counts as numeric with
	// null statistics.
	switch {
	case nonNull == numCnt:
		col.Type = TypeNumeric
		col.Summary = numericSummary(cells)
	case nonNull == timeCnt:
		col.Type = TypeDate
		col.Summary = dateSummary(cells)
	case nonNull == boolCnt:
		col.Type = TypeBoolean
		col.Summary = boolSummary(cells)
	default:
		col.Type = TypeCategorical
		if col.UniqueCount <= MaxValueCountCardinality {
			col.ValueCounts = valueCounts(cells)
		}
	}
	return col
}

func numericSummary(cells []dataset.Cell) NumericSummary {
	var vals []float64
	for _, c := range cells {
		if c.Kind == dataset.KindNumber {
			vals = append(vals, c.Num)
		}
	}
	var s NumericSummary
	if len(vals) == 0 {
		return s
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	s.Min = ptr(sorted[0])
	s.Max = ptr(sorted[len(sorted)-1])
	s.Mean = ptr(mean)
	s.Median = ptr(median(sorted))
	if len(vals) > 1 {
		var m2 float64
		for _, v := range vals {
			d := v - mean
			m2 += d * d
		}
		s.Std = ptr(math.Sqrt(m2 / float64(len(vals)-1)))
	}
	return s
}

func dateSummary(cells []dataset.Cell) DateSummary {
	var s DateSummary
	first := true
	var minT, maxT = cells[0].Time, cells[0].Time
	for _, c := range cells {
		if c.Kind != dataset.KindTime {
			continue
		}
		if first {
			minT, maxT = c.Time, c.Time
			first = false
			continue
		}
		if c.Time.Before(minT) {
			minT = c.Time
		}
		if c.Time.After(maxT) {
			maxT = c.Time
		}
	}
	if first {
		return s
	}
	s.MinDate = ptr(minT.Format("2006-01-02T15:04:05"))
	s.MaxDate = ptr(maxT.Format("2006-01-02T15:04:05"))
	return s
}

func boolSummary(cells []dataset.Cell) BoolSummary {
	var s BoolSummary
	for _, c := range cells {
		if c.Kind != dataset.KindBool {
			continue
		}
		if c.Bool {
			s.TrueCount++
		} else {
			s.FalseCount++
		}
	}
	return s
}

func valueCounts(cells []dataset.Cell) map[string]int {
	counts := map[string]int{}
	for _, c := range cells {
		if c.Kind == dataset.KindMissing {
			continue
		}
		counts[c.String()]++
	}
	return counts
}

// median of an already sorted non-empty slice, interpolating even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func ptr[T any](v T) *T { return &v }

var timeSeriesKeywords = []string{"date", "time", "year", "month"}

var geographicKeywords = []string{"country", "city", "region", "location", "lat", "lon"}

// Signals are dataset-level facts derived from the profile list, used as rule
// predicate inputs by the recommendation engine and surfaced to the caller.
type Signals struct {
	NumericColumns     []string
	CategoricalColumns []string
	DateColumns        []string
	BooleanColumns     []string
	HasTimeSeries      bool
	HasGeographic      bool
}

// DeriveSignals computes dataset-level signals from a profile list.
// HasTimeSeries triggers on a date column or a time-flavored column name;
// HasGeographic on a geography-flavored column name.
func DeriveSignals(cols []Column) Signals {
	var sig Signals
	for _, c := range cols {
		switch c.Type {
		case TypeNumeric:
			sig.NumericColumns = append(sig.NumericColumns, c.Name)
		case TypeCategorical:
			sig.CategoricalColumns = append(sig.CategoricalColumns, c.Name)
		case TypeDate:
			sig.DateColumns = append(sig.DateColumns, c.Name)
			sig.HasTimeSeries = true
		case TypeBoolean:
			sig.BooleanColumns = append(sig.BooleanColumns, c.Name)
		}
		lower := strings.ToLower(c.Name)
		for _, kw := range timeSeriesKeywords {
			if strings.Contains(lower, kw) {
				sig.HasTimeSeries = true
				break
			}
		}
		for _, kw := range geographicKeywords {
			if strings.Contains(lower, kw) {
				sig.HasGeographic = true
				break
			}
		}
	}
	return sig
}
