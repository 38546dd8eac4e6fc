package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func runsAt(now time.Time, ages ...time.Duration) []Run {
	runs := make([]Run, len(ages))
	for i, age := range ages {
		runs[i] = Run{ID: int64(len(ages) - i), CreatedAt: now.Add(-age)}
	}
	return runs
}

func ids(runs []Run) []int64 {
	out := make([]int64, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestRetentionPolicies(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	runs := runsAt(now, 0, 2*day, 10*day, 40*day) // ids 4, 3, 2, 1

	tests := []struct {
		name   string
		policy RetentionPolicy
		want   []int64
	}{
		{"count", &CountPolicy{MaxCount: 2}, []int64{4, 3}},
		{"count larger than runs", &CountPolicy{MaxCount: 10}, []int64{4, 3, 2, 1}},
		{"age", &AgePolicy{MaxAge: 7 * day, Now: func() time.Time { return now }}, []int64{4, 3}},
		{"composite union", &CompositePolicy{Policies: []RetentionPolicy{
			&CountPolicy{MaxCount: 1},
			&AgePolicy{MaxAge: 30 * day, Now: func() time.Time { return now }},
		}}, []int64{4, 3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(tt.policy.Keep(runs))); diff != "" {
				t.Errorf("kept mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.SaveRun(ctx, Run{}, sampleData()); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	deleted, err := s.Prune(ctx, &CountPolicy{MaxCount: 1})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if diff := cmp.Diff([]int64{3, 2, 1}, deleted); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != 4 {
		t.Errorf("remaining runs = %v", ids(runs))
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAge(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAge(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAge(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
