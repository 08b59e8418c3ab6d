package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store archives files on local disk under a root directory. The contract is
// deliberately small: store bytes at a path, read them back later.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: dir}, nil
}

// GPSPath builds the archive path for a raw GPS export:
// gps/{vehicleId}/{period}-{timestamp}-{filename}. Uploads not tied to a
// single vehicle use vehicle id 0.
func GPSPath(vehicleID uint, period time.Time, fileName string) string {
	return filepath.ToSlash(filepath.Join(
		"gps",
		fmt.Sprintf("%d", vehicleID),
		fmt.Sprintf("%s-%d-%s", period.Format("2006-01"), time.Now().Unix(), safeName(fileName)),
	))
}

// ReceiptPath builds the archive path for an uploaded receipt image.
func ReceiptPath(userID uint, fileName string) string {
	now := time.Now()
	return filepath.ToSlash(filepath.Join(
		"receipts",
		now.Format("2006/01"),
		fmt.Sprintf("%d_%d_%s", now.UnixNano(), userID, safeName(fileName)),
	))
}

// Save writes data to the given relative path, creating parent directories.
func (s *Store) Save(relPath string, data []byte) error {
	full := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Read returns the bytes previously stored at the given relative path.
func (s *Store) Read(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
}

// FullPath resolves a relative path against the storage root.
func (s *Store) FullPath(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

// safeName keeps only the base name and replaces path-hostile characters.
func safeName(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		name = fmt.Sprintf("file_%d", time.Now().UnixNano())
	}
	return name
}
