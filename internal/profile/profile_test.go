package profile

import (
	"math"
	"testing"

	"github.com/dataviz-ai/dataviz-go/internal/dataset"
)

func mustTable(t *testing.T, csv string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV([]byte(csv), ',')
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return tbl
}

func TestDatasetClassification(t *testing.T) {
	csv := "revenue,day,active,region\n" +
		"10,2024-01-01,true,north\n" +
		"20,2024-01-02,false,south\n" +
		",2024-01-03,true,north\n"
	cols := Dataset(mustTable(t, csv))
	if len(cols) != 4 {
		t.Fatalf("len(cols) = %d, want 4", len(cols))
	}
	wantTypes := []SemanticType{TypeNumeric, TypeDate, TypeBoolean, TypeCategorical}
	for i, want := range wantTypes {
		if cols[i].Type != want {
			t.Errorf("cols[%d].Type = %s, want %s", i, cols[i].Type, want)
		}
	}
	if cols[0].NACount != 1 {
		t.Errorf("revenue NACount = %d, want 1", cols[0].NACount)
	}
	if cols[0].UniqueCount != 2 {
		t.Errorf("revenue UniqueCount = %d, want 2", cols[0].UniqueCount)
	}
	if cols[3].UniqueCount != 2 {
		t.Errorf("region UniqueCount = %d, want 2", cols[3].UniqueCount)
	}
}

func TestNumericSummary(t *testing.T) {
	csv := "v\n2\n4\n4\n4\n5\n5\n7\n9\n"
	cols := Dataset(mustTable(t, csv))
	s, ok := cols[0].Summary.(NumericSummary)
	if !ok {
		t.Fatalf("Summary is %T, want NumericSummary", cols[0].Summary)
	}
	if *s.Min != 2 || *s.Max != 9 {
		t.Errorf("min/max = %v/%v, want 2/9", *s.Min, *s.Max)
	}
	if *s.Mean != 5 {
		t.Errorf("mean = %v, want 5", *s.Mean)
	}
	if *s.Median != 4.5 {
		t.Errorf("median = %v, want 4.5", *s.Median)
	}
	// sample standard deviation of the classic 2,4,4,4,5,5,7,9 set
	if got, want := *s.Std, math.Sqrt(32.0/7.0); math.Abs(got-want) > 1e-12 {
		t.Errorf("std = %v, want %v", got, want)
	}
}

func TestNumericSummaryEvenAndOddMedian(t *testing.T) {
	cols := Dataset(mustTable(t, "v\n1\n2\n3\n"))
	s := cols[0].Summary.(NumericSummary)
	if *s.Median != 2 {
		t.Errorf("odd median = %v, want 2", *s.Median)
	}
	cols = Dataset(mustTable(t, "v\n1\n2\n3\n4\n"))
	s = cols[0].Summary.(NumericSummary)
	if *s.Median != 2.5 {
		t.Errorf("even median = %v, want 2.5", *s.Median)
	}
}

func TestAllMissingColumnIsNumericWithNilStats(t *testing.T) {
	cols := Dataset(mustTable(t, "v\n\n\n"))
	if cols[0].Type != TypeNumeric {
		t.Fatalf("Type = %s, want numeric", cols[0].Type)
	}
	s, ok := cols[0].Summary.(NumericSummary)
	if !ok {
		t.Fatalf("Summary is %T, want NumericSummary", cols[0].Summary)
	}
	if s.Min != nil || s.Max != nil || s.Mean != nil || s.Median != nil || s.Std != nil {
		t.Errorf("all-missing column stats not nil: %+v", s)
	}
	if cols[0].NACount != 2 {
		t.Errorf("NACount = %d, want 2", cols[0].NACount)
	}
}

func TestSingleValueStdIsNil(t *testing.T) {
	cols := Dataset(mustTable(t, "v\n5\n"))
	s := cols[0].Summary.(NumericSummary)
	if s.Std != nil {
		t.Errorf("std of single value = %v, want nil", *s.Std)
	}
}

func TestDateSummary(t *testing.T) {
	csv := "day\n2024-03-01\n2024-01-15\n2024-02-20\n"
	cols := Dataset(mustTable(t, csv))
	s, ok := cols[0].Summary.(DateSummary)
	if !ok {
		t.Fatalf("Summary is %T, want DateSummary", cols[0].Summary)
	}
	if got, want := *s.MinDate, "2024-01-15T00:00:00"; got != want {
		t.Errorf("MinDate = %q, want %q", got, want)
	}
	if got, want := *s.MaxDate, "2024-03-01T00:00:00"; got != want {
		t.Errorf("MaxDate = %q, want %q", got, want)
	}
}

func TestBoolSummary(t *testing.T) {
	csv := "flag\ntrue\ntrue\nfalse\n"
	cols := Dataset(mustTable(t, csv))
	s, ok := cols[0].Summary.(BoolSummary)
	if !ok {
		t.Fatalf("Summary is %T, want BoolSummary", cols[0].Summary)
	}
	if s.TrueCount != 2 || s.FalseCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", s.TrueCount, s.FalseCount)
	}
}

func TestMixedColumnIsCategorical(t *testing.T) {
	csv := "v\n1\nhello\ntrue\n"
	cols := Dataset(mustTable(t, csv))
	if cols[0].Type != TypeCategorical {
		t.Fatalf("mixed column Type = %s, want categorical", cols[0].Type)
	}
	if cols[0].Summary != nil {
		t.Errorf("categorical Summary = %v, want nil", cols[0].Summary)
	}
}

func TestValueCountsCardinalityCap(t *testing.T) {
	csv := "v\na\na\nb\n"
	cols := Dataset(mustTable(t, csv))
	if got := cols[0].ValueCounts["a"]; got != 2 {
		t.Errorf("ValueCounts[a] = %d, want 2", got)
	}

	// 51 distinct values: the frequency table must be dropped.
	big := "v\n"
	for i := 0; i < MaxValueCountCardinality+1; i++ {
		big += "item_" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + "\n"
	}
	cols = Dataset(mustTable(t, big))
	if cols[0].ValueCounts != nil {
		t.Errorf("high-cardinality ValueCounts present, want nil (len=%d)", len(cols[0].ValueCounts))
	}
}

func TestDeriveSignals(t *testing.T) {
	cols := []Column{
		{Name: "revenue", Type: TypeNumeric},
		{Name: "region", Type: TypeCategorical},
		{Name: "day", Type: TypeDate},
		{Name: "active", Type: TypeBoolean},
	}
	sig := DeriveSignals(cols)
	if !sig.HasTimeSeries {
		t.Error("HasTimeSeries = false, want true (date column present)")
	}
	if !sig.HasGeographic {
		t.Error("HasGeographic = false, want true (region column)")
	}
	if len(sig.NumericColumns) != 1 || sig.NumericColumns[0] != "revenue" {
		t.Errorf("NumericColumns = %v", sig.NumericColumns)
	}
	if len(sig.BooleanColumns) != 1 {
		t.Errorf("BooleanColumns = %v", sig.BooleanColumns)
	}
}

func TestDeriveSignalsNameKeywords(t *testing.T) {
	// A categorical column named with a time keyword still flips the signal.
	sig := DeriveSignals([]Column{{Name: "Birth_Year", Type: TypeCategorical}})
	if !sig.HasTimeSeries {
		t.Error("HasTimeSeries = false, want true for name keyword 'year'")
	}
	sig = DeriveSignals([]Column{{Name: "amount", Type: TypeNumeric}})
	if sig.HasTimeSeries || sig.HasGeographic {
		t.Errorf("signals = %+v, want both false", sig)
	}
}
