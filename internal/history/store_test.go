package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	uploads := []Upload{
		{ID: "id-1", Filename: "a.csv", Rows: 10, Cols: 2, NumericCols: 1, CategoricalCols: 1, UploadedAt: base},
		{ID: "id-2", Filename: "b.xlsx", Rows: 5, Cols: 3, DateCols: 1, HasTimeSeries: true, UploadedAt: base.Add(time.Hour)},
		{ID: "id-3", Filename: "c.csv", Rows: 7, Cols: 4, BooleanCols: 2, HasGeographic: true, UploadedAt: base.Add(2 * time.Hour)},
	}
	for _, u := range uploads {
		if err := s.Record(ctx, u); err != nil {
			t.Fatalf("Record(%s): %v", u.ID, err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// newest first
	if got[0].ID != "id-3" || got[2].ID != "id-1" {
		t.Errorf("order = %s,%s,%s, want id-3 first", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Filename != "c.csv" || !got[0].HasGeographic || got[0].HasTimeSeries {
		t.Errorf("got[0] = %+v", got[0])
	}
	if !got[1].HasTimeSeries || got[1].DateCols != 1 {
		t.Errorf("got[1] = %+v", got[1])
	}
	if !got[0].UploadedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("UploadedAt = %v, want %v", got[0].UploadedAt, base.Add(2*time.Hour))
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		u := Upload{
			ID: string(rune('a' + i)), Filename: "f.csv",
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Record(ctx, u); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "e" {
		t.Errorf("got[0].ID = %s, want e", got[0].ID)
	}
}

func TestRecentEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Record(context.Background(), Upload{ID: "x", Filename: "f.csv", UploadedAt: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	// reopening must keep existing rows
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].ID != "x" {
		t.Errorf("after reopen got %v", got)
	}
}
