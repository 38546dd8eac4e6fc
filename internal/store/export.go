package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nvandessel/headwinds/internal/agent"
)

// WriteMessagesJSONL writes one JSON object per message.
func WriteMessagesJSONL(w io.Writer, msgs []agent.Message) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", m.ID, err)
		}
	}
	return bw.Flush()
}

// ExportMessages writes msgs to path as JSONL. The file is written to a
// temporary name and renamed into place.
func ExportMessages(path string, msgs []agent.Message) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteMessagesJSONL(tmp, msgs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}

// ReadMessagesJSONL reads messages written by WriteMessagesJSONL. Blank
// lines are skipped; a malformed line is an error naming its line number.
func ReadMessagesJSONL(r io.Reader) ([]agent.Message, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var msgs []agent.Message
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m agent.Message
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return msgs, nil
}

// ImportMessages reads a JSONL message export from path.
func ImportMessages(path string) ([]agent.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ReadMessagesJSONL(f)
}
