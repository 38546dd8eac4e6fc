// Package logging provides leveled logging and message tracing for
// headwinds. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A MessageTrace for structured JSONL traces of every posted message
//     and step summary (<output>/trace.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level the trace
// also records full message vectors.
const LevelTrace = slog.LevelDebug - 4

// TraceFile is the trace file name inside the output directory.
const TraceFile = "trace.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "warn", "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// MessageTrace writes structured simulation events to a JSONL file.
// It is safe for concurrent use. A nil MessageTrace is safe to use;
// all methods are no-ops on nil receiver.
type MessageTrace struct {
	mu      sync.Mutex
	file    *os.File
	vectors bool
}

// NewMessageTrace creates a trace writing to dir/trace.jsonl.
// At "info" level and above, returns nil and no file is created.
// At "debug" the file is truncated and opened; "trace" additionally records
// message vectors. Returns nil if the file cannot be opened.
func NewMessageTrace(dir string, level string) *MessageTrace {
	lvl := ParseLevel(level)
	if lvl > slog.LevelDebug {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, TraceFile)
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &MessageTrace{file: f, vectors: lvl <= LevelTrace}
}

// Message records one posted message.
func (mt *MessageTrace) Message(step int, id int64, sender int, content []string, vector []float64, followers int) {
	if mt == nil {
		return
	}
	event := map[string]any{
		"event":     "message",
		"step":      step,
		"id":        id,
		"sender":    sender,
		"content":   content,
		"followers": followers,
	}
	if mt.vectors {
		event["vector"] = vector
	}
	mt.Log(event)
}

// Step records a step summary.
func (mt *MessageTrace) Step(step, posted, deliveries int) {
	if mt == nil {
		return
	}
	mt.Log(map[string]any{
		"event":      "step",
		"step":       step,
		"posted":     posted,
		"deliveries": deliveries,
	})
}

// Log writes an event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (mt *MessageTrace) Log(event map[string]any) {
	if mt == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.file == nil {
		return
	}
	_, _ = mt.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (mt *MessageTrace) Close() error {
	if mt == nil {
		return nil
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.file == nil {
		return nil
	}
	err := mt.file.Close()
	mt.file = nil
	return err
}
