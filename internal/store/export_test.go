package store

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExportImportMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), MessagesFile)
	msgs := sampleData().Messages

	if err := ExportMessages(path, msgs); err != nil {
		t.Fatalf("ExportMessages: %v", err)
	}
	got, err := ImportMessages(path)
	if err != nil {
		t.Fatalf("ImportMessages: %v", err)
	}
	if diff := cmp.Diff(msgs, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMessagesJSONL_OneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessagesJSONL(&buf, sampleData().Messages); err != nil {
		t.Fatalf("WriteMessagesJSONL: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], `{"id":1,"step":0,"sender":3,`) {
		t.Errorf("unexpected first line: %s", lines[0])
	}
}

func TestReadMessagesJSONL(t *testing.T) {
	t.Run("skips blank lines", func(t *testing.T) {
		in := "{\"id\":1,\"content\":[\"a\"]}\n\n{\"id\":2}\n"
		got, err := ReadMessagesJSONL(strings.NewReader(in))
		if err != nil {
			t.Fatalf("ReadMessagesJSONL: %v", err)
		}
		if len(got) != 2 || got[1].ID != 2 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("reports malformed line", func(t *testing.T) {
		in := "{\"id\":1}\nnot json\n"
		_, err := ReadMessagesJSONL(strings.NewReader(in))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error = %v, want line 2 failure", err)
		}
	})
}
