package storage

import (
	"strings"
	"testing"
	"time"
)

func TestGPSPathLayout(t *testing.T) {
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := GPSPath(7, period, "march export.csv")
	if !strings.HasPrefix(p, "gps/7/2026-03-") {
		t.Errorf("unexpected path prefix: %q", p)
	}
	if strings.Contains(p, " ") {
		t.Errorf("path contains spaces: %q", p)
	}
}

func TestSafeNameStripsTraversal(t *testing.T) {
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := GPSPath(1, period, "../../etc/passwd")
	if strings.Contains(p, "..") {
		t.Errorf("traversal survived: %q", p)
	}
}

func TestSaveAndRead(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("gps/1/test.csv", []byte("a,b\n1,2\n")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("gps/1/test.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Errorf("roundtrip mismatch: %q", got)
	}
}
