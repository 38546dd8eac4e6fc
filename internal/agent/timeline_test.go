package agent

import "testing"

func ids(msgs []Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestTimeline_Recent(t *testing.T) {
	tl := NewTimeline(0)
	if got := tl.Recent(RecentWindow); len(got) != 0 {
		t.Errorf("Recent on empty timeline = %v, want empty", got)
	}

	for i := int64(1); i <= 15; i++ {
		tl.Append(Message{ID: i})
	}

	tests := []struct {
		k    int
		want []int64
	}{
		{0, []int64{}},
		{3, []int64{13, 14, 15}},
		{20, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}},
	}
	for _, tt := range tests {
		got := ids(tl.Recent(tt.k))
		if len(got) != len(tt.want) {
			t.Errorf("Recent(%d) = %v, want %v", tt.k, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Recent(%d) = %v, want %v", tt.k, got, tt.want)
				break
			}
		}
	}

	if tl.Len() != 15 || tl.Total() != 15 {
		t.Errorf("Len()=%d Total()=%d, want 15, 15", tl.Len(), tl.Total())
	}
}

func TestTimeline_RecentIsNotAppendable(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(Message{ID: 1}, Message{ID: 2}, Message{ID: 3})

	view := tl.Recent(2)
	_ = append(view, Message{ID: 99})
	tl.Append(Message{ID: 4})

	if got := ids(tl.All()); got[3] != 4 {
		t.Errorf("appending to a Recent view clobbered the timeline: %v", got)
	}
}

func TestTimeline_Retention(t *testing.T) {
	tl := NewTimeline(RecentWindow)
	for i := int64(1); i <= 25; i++ {
		tl.Append(Message{ID: i})
	}

	if tl.Len() != RecentWindow {
		t.Errorf("Len() = %d, want %d", tl.Len(), RecentWindow)
	}
	if tl.Total() != 25 {
		t.Errorf("Total() = %d, want 25", tl.Total())
	}
	all := ids(tl.All())
	if all[0] != 16 || all[len(all)-1] != 25 {
		t.Errorf("retained = %v, want 16..25", all)
	}
}

func TestTimeline_AllReturnsCopy(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(Message{ID: 1})
	all := tl.All()
	all[0].ID = 42
	if tl.Recent(1)[0].ID != 1 {
		t.Error("All() shares storage with the timeline")
	}
}
