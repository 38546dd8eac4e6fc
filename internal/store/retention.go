package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RetentionPolicy decides which runs to keep. Runs are passed newest first.
type RetentionPolicy interface {
	Keep(runs []Run) []Run
}

// CountPolicy keeps the N most recent runs.
type CountPolicy struct {
	MaxCount int
}

// Keep keeps the first MaxCount runs.
func (p *CountPolicy) Keep(runs []Run) []Run {
	if len(runs) <= p.MaxCount {
		return runs
	}
	return runs[:max(p.MaxCount, 0)]
}

// AgePolicy keeps runs created within MaxAge of Now.
type AgePolicy struct {
	MaxAge time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Keep keeps runs whose CreatedAt is after the cutoff.
func (p *AgePolicy) Keep(runs []Run) []Run {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)

	var keep []Run
	for _, r := range runs {
		if r.CreatedAt.After(cutoff) {
			keep = append(keep, r)
		}
	}
	return keep
}

// CompositePolicy keeps a run if any sub-policy keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Keep returns the union of runs kept by the sub-policies, in input order.
func (p *CompositePolicy) Keep(runs []Run) []Run {
	kept := make(map[int64]bool)
	for _, policy := range p.Policies {
		for _, r := range policy.Keep(runs) {
			kept[r.ID] = true
		}
	}

	var result []Run
	for _, r := range runs {
		if kept[r.ID] {
			result = append(result, r)
		}
	}
	return result
}

// Prune deletes every run the policy does not keep and returns the deleted
// IDs, newest first.
func (s *SQLiteRunStore) Prune(ctx context.Context, policy RetentionPolicy) ([]int64, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	kept := make(map[int64]bool)
	for _, r := range policy.Keep(runs) {
		kept[r.ID] = true
	}

	var deleted []int64
	for _, r := range runs {
		if kept[r.ID] {
			continue
		}
		if err := s.DeleteRun(ctx, r.ID); err != nil {
			return deleted, err
		}
		deleted = append(deleted, r.ID)
	}
	return deleted, nil
}

// ParseAge parses durations like "30d", "2w" or any time.ParseDuration form.
func ParseAge(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}
