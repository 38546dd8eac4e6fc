package agent

// Timeline is the append-only log of messages an agent has received.
//
// Composition only ever reads the most recent RecentWindow entries, so
// Recent returns an index-offset view instead of rescanning the log. With a
// positive retention, entries older than the retention limit are dropped.
type Timeline struct {
	msgs      []Message
	retention int
	total     int
}

// NewTimeline returns an empty timeline. retention <= 0 keeps everything.
func NewTimeline(retention int) *Timeline {
	return &Timeline{retention: retention}
}

// Append adds msgs in order.
func (t *Timeline) Append(msgs ...Message) {
	t.msgs = append(t.msgs, msgs...)
	t.total += len(msgs)
	if t.retention > 0 && len(t.msgs) > t.retention {
		t.msgs = t.msgs[len(t.msgs)-t.retention:]
	}
}

// Len returns the number of retained messages.
func (t *Timeline) Len() int { return len(t.msgs) }

// Total returns the number of messages ever appended, retained or not.
func (t *Timeline) Total() int { return t.total }

// Recent returns the last min(k, Len()) messages, oldest first. The result
// shares storage with the timeline and must be treated as read-only.
func (t *Timeline) Recent(k int) []Message {
	if k <= 0 {
		return nil
	}
	start := max(0, len(t.msgs)-k)
	return t.msgs[start:len(t.msgs):len(t.msgs)]
}

// All returns a copy of the retained messages, oldest first.
func (t *Timeline) All() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}
