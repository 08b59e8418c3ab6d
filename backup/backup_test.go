package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPathRejectsTraversal(t *testing.T) {
	m := &Manager{dir: t.TempDir()}
	bad := []string{
		"",
		"../etc/passwd",
		"fleet-backup-x/../../etc/passwd",
		"notabackup.json.gz",
	}
	for _, name := range bad {
		if _, err := m.Path(name); err == nil {
			t.Errorf("Path(%q): expected error", name)
		}
	}
	if _, err := m.Path("fleet-backup-20260101T000000-abcd1234.json.gz"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	m := &Manager{dir: dir}

	old := filepath.Join(dir, "fleet-backup-old.json.gz")
	recent := filepath.Join(dir, "fleet-backup-new.json.gz")
	for _, p := range []string{old, recent} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d archives, want 2", len(infos))
	}
	if infos[0].Name != "fleet-backup-new.json.gz" {
		t.Errorf("newest first: got %q", infos[0].Name)
	}
}
