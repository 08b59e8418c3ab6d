package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/models"
)

// archiveVersion is bumped whenever the archive layout changes.
const archiveVersion = 1

var (
	// ErrUnknownArchive means the named backup file does not exist.
	ErrUnknownArchive = errors.New("backup: archive not found")
	// ErrBadArchiveName rejects names that are not plain backup file names.
	ErrBadArchiveName = errors.New("backup: invalid archive name")
)

// Archive is the on-disk backup format: one JSON document, gzipped, holding
// every table as a raw JSON array.
type Archive struct {
	Version   int                        `json:"version"`
	CreatedAt time.Time                  `json:"created_at"`
	Tables    map[string]json.RawMessage `json:"tables"`
}

// table binds a table name to a typed row-slice constructor so archives can
// be decoded back into gorm inserts. Order matters for restore: parents
// before children.
type table struct {
	name string
	rows func() interface{}
}

var tables = []table{
	{"users", func() interface{} { return &[]models.User{} }},
	{"branches", func() interface{} { return &[]models.Branch{} }},
	{"vendors", func() interface{} { return &[]models.Vendor{} }},
	{"expense_categories", func() interface{} { return &[]models.ExpenseCategory{} }},
	{"vehicles", func() interface{} { return &[]models.Vehicle{} }},
	{"stored_files", func() interface{} { return &[]models.StoredFile{} }},
	{"expenses", func() interface{} { return &[]models.Expense{} }},
	{"inspections", func() interface{} { return &[]models.Inspection{} }},
	{"gps_upload_records", func() interface{} { return &[]models.GPSUploadRecord{} }},
}

// Manager creates, lists, restores and prunes database backup archives.
type Manager struct {
	db  *gorm.DB
	dir string
	log *zap.SugaredLogger
}

// NewManager creates the backup directory and returns a manager.
func NewManager(db *gorm.DB, dir string, log *zap.SugaredLogger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Manager{db: db, dir: dir, log: log}, nil
}

// Run dumps every table to a new gzipped archive and returns its file name.
// Soft-deleted rows are included so a restore is a faithful copy.
func (m *Manager) Run(ctx context.Context) (string, error) {
	arch := Archive{
		Version:   archiveVersion,
		CreatedAt: time.Now(),
		Tables:    map[string]json.RawMessage{},
	}

	for _, t := range tables {
		rows := t.rows()
		if err := m.db.WithContext(ctx).Unscoped().Table(t.name).Find(rows).Error; err != nil {
			return "", fmt.Errorf("dump %s: %w", t.name, err)
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", t.name, err)
		}
		arch.Tables[t.name] = b
	}

	name := fmt.Sprintf("fleet-backup-%s-%s.json.gz",
		arch.CreatedAt.Format("20060102T150405"),
		uuid.NewString()[:8],
	)
	f, err := os.Create(filepath.Join(m.dir, name))
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(&arch); err != nil {
		gz.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}

	m.log.Infow("backup written", "archive", name, "tables", len(arch.Tables))
	return name, nil
}

// Restore replaces the contents of every table with the rows in the named
// archive, inside one transaction. This is destructive and the caller must
// have confirmed it.
func (m *Manager) Restore(ctx context.Context, name string) error {
	path, err := m.Path(name)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrUnknownArchive
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer gz.Close()

	var arch Archive
	if err := json.NewDecoder(gz).Decode(&arch); err != nil {
		return fmt.Errorf("decode archive: %w", err)
	}
	if arch.Version != archiveVersion {
		return fmt.Errorf("unsupported archive version %d", arch.Version)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			raw, ok := arch.Tables[t.name]
			if !ok {
				continue
			}
			rows := t.rows()
			if err := json.Unmarshal(raw, rows); err != nil {
				return fmt.Errorf("decode %s: %w", t.name, err)
			}
			if err := tx.Exec("DELETE FROM " + t.name).Error; err != nil {
				return fmt.Errorf("clear %s: %w", t.name, err)
			}
			if reflect.ValueOf(rows).Elem().Len() == 0 {
				continue
			}
			if err := tx.Table(t.name).CreateInBatches(rows, 500).Error; err != nil {
				return fmt.Errorf("restore %s: %w", t.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Infow("backup restored", "archive", name)
	return nil
}

// Info describes one archive on disk.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns all archives, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "fleet-backup-") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: e.Name(), Size: fi.Size(), CreatedAt: fi.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Path resolves an archive name inside the backup directory, rejecting
// anything that could escape it.
func (m *Manager) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasPrefix(name, "fleet-backup-") {
		return "", ErrBadArchiveName
	}
	return filepath.Join(m.dir, name), nil
}

// Schedule starts cron-driven automatic backups. An empty spec disables the
// scheduler and returns nil.
func (m *Manager) Schedule(spec string) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := m.Run(ctx); err != nil {
			m.log.Errorw("scheduled backup failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bad backup cron spec %q: %w", spec, err)
	}
	c.Start()
	m.log.Infow("backup scheduler started", "spec", spec)
	return c, nil
}

// StartRetentionCleaner launches a background goroutine that periodically
// deletes archives older than maxAge. It is best-effort and logs failures.
func (m *Manager) StartRetentionCleaner(maxAge, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			infos, err := m.List()
			if err != nil {
				m.log.Warnw("backup retention scan failed", "err", err)
				continue
			}
			cutoff := time.Now().Add(-maxAge)
			for _, info := range infos {
				if info.CreatedAt.After(cutoff) {
					continue
				}
				if err := os.Remove(filepath.Join(m.dir, info.Name)); err != nil {
					m.log.Warnw("backup retention delete failed", "archive", info.Name, "err", err)
				} else {
					m.log.Infow("expired backup removed", "archive", info.Name)
				}
			}
		}
	}()
}
