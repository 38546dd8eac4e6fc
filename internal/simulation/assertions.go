package simulation

import (
	"testing"

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/socialgraph"
	"github.com/nvandessel/headwinds/internal/vocab"
)

// AssertTableShapes asserts every agent's table is rows x dim.
func AssertTableShapes(t testing.TB, agents []*agent.Agent, rows, dim int) {
	t.Helper()
	for _, a := range agents {
		if a.Rows() != rows || a.Dim() != dim {
			t.Errorf("AssertTableShapes: agent %d table is %dx%d, want %dx%d", a.ID(), a.Rows(), a.Dim(), rows, dim)
		}
	}
}

// AssertMonotonicIDs asserts message IDs strictly increase in log order.
func AssertMonotonicIDs(t testing.TB, msgs []agent.Message) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Errorf("AssertMonotonicIDs: message %d has id %d after id %d", i, msgs[i].ID, msgs[i-1].ID)
		}
	}
}

// AssertContentInVocabulary asserts every content word of every message is
// in v and no message repeats a word.
func AssertContentInVocabulary(t testing.TB, msgs []agent.Message, v *vocab.Vocabulary) {
	t.Helper()
	for _, m := range msgs {
		seen := make(map[string]bool, len(m.Content))
		for _, w := range m.Content {
			if !v.Contains(w) {
				t.Errorf("AssertContentInVocabulary: message %d word %q not in vocabulary", m.ID, w)
			}
			if seen[w] {
				t.Errorf("AssertContentInVocabulary: message %d repeats %q", m.ID, w)
			}
			seen[w] = true
		}
		if len(m.Content) == 0 || len(m.Content) > agent.WordsPerMessage {
			t.Errorf("AssertContentInVocabulary: message %d has %d words", m.ID, len(m.Content))
		}
	}
}

// ReceivedCounts snapshots how many messages each agent has received.
func ReceivedCounts(agents []*agent.Agent) map[int]int {
	out := make(map[int]int, len(agents))
	for _, a := range agents {
		out[a.ID()] = a.ReceivedCount()
	}
	return out
}

// AssertFollowerOnlyDelivery asserts that between the before snapshot and
// now, each agent received exactly one message per post in posted whose
// sender it follows, and never its own.
func AssertFollowerOnlyDelivery(t testing.TB, g socialgraph.Graph, agents []*agent.Agent, before map[int]int, posted []agent.Message) {
	t.Helper()
	want := make(map[int]int, len(agents))
	for _, m := range posted {
		for _, f := range g.FollowersOf(m.Sender) {
			if f != m.Sender {
				want[f]++
			}
		}
	}
	for _, a := range agents {
		got := a.ReceivedCount() - before[a.ID()]
		if got != want[a.ID()] {
			t.Errorf("AssertFollowerOnlyDelivery: agent %d received %d messages, want %d", a.ID(), got, want[a.ID()])
		}
	}
}
