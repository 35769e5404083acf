package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// The atomic-rewrite property: when the rename step cannot complete,
// the committed document is untouched and no temp file is left behind.
func TestJSONWriteDocFailedRenameLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "data.json")

	// A directory at the target path makes the rename fail after the
	// temp file has been written, the same window a crash would hit.
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}

	p := newJSONProvider(Config{Backend: BackendJSON, Location: target})
	if err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	err := p.writeDoc(RecordSet{{"id": "1"}})
	if !IsKind(err, KindWrite) {
		t.Fatalf("expected write error, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file %s not cleaned up", e.Name())
		}
	}
}

func TestJSONSaveFailureLeavesDocumentIntact(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "data.json")

	p := newJSONProvider(Config{Backend: BackendJSON, Location: target})
	if err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SaveData(RecordSet{{"id": "1"}}); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}

	// Read-only directory: the temp file cannot be created, so the
	// save fails before it can touch the committed document.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	if _, err := p.SaveData(RecordSet{{"id": "2"}}); !IsKind(err, KindWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
	after, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(before) {
		t.Fatalf("document changed across failed save:\nbefore %q\nafter  %q", before, after)
	}
}
