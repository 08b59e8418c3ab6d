package gps

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yonaskd/fleetms/models"
)

// Session states. A session moves Idle -> Scanning -> Ready and ends in
// Confirmed or Cancelled; terminal states are not re-enterable. A new file
// selection always starts a fresh session.
const (
	StateIdle      = "idle"
	StateScanning  = "scanning"
	StateReady     = "ready"
	StateConfirmed = "confirmed"
	StateCancelled = "cancelled"
)

var (
	// ErrSessionClosed is returned for any edit or transition attempted on a
	// session that already reached Confirmed or Cancelled.
	ErrSessionClosed = errors.New("gps: session is already confirmed or cancelled")
	// ErrInvalidKilometers rejects negative or unparsable kilometer edits;
	// the entry keeps its previous value.
	ErrInvalidKilometers = errors.New("gps: kilometers must be a non-negative number")
	// ErrEntryIndex means the entry index does not exist in the session.
	ErrEntryIndex = errors.New("gps: entry index out of range")
)

// PreviewEntry is a parsed entry plus its current (user-editable) vehicle
// assignment. It exists only for the duration of the confirm/cancel decision.
type PreviewEntry struct {
	ParsedEntry
	Vehicle *models.Vehicle `json:"vehicle"`
}

// Session is the in-memory staging area between parsing a file and committing
// its effects. All mutation goes through methods holding the session lock.
type Session struct {
	ID         string         `json:"id"`
	State      string         `json:"state"`
	FileName   string         `json:"file_name"`
	Period     time.Time      `json:"period"` // first day of the upload month
	UploadedBy uint           `json:"uploaded_by"`
	Entries    []PreviewEntry `json:"entries"`
	Warnings   []ParseWarning `json:"warnings"`
	CreatedAt  time.Time      `json:"created_at"`

	raw []byte // original file bytes, archived on confirm
	mu  sync.Mutex
}

// Raw returns the original file bytes for archiving.
func (s *Session) Raw() []byte { return s.raw }

// View is a point-in-time copy of a session. Handlers encode views, never
// the live session: encoding the session directly would read Entries
// without the lock and race concurrent edits.
type View struct {
	ID         string         `json:"id"`
	State      string         `json:"state"`
	FileName   string         `json:"file_name"`
	Period     time.Time      `json:"period"`
	UploadedBy uint           `json:"uploaded_by"`
	Entries    []PreviewEntry `json:"entries"`
	Warnings   []ParseWarning `json:"warnings"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Snapshot copies the session state under the lock.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]PreviewEntry, len(s.Entries))
	copy(entries, s.Entries)
	warnings := make([]ParseWarning, len(s.Warnings))
	copy(warnings, s.Warnings)
	return View{
		ID:         s.ID,
		State:      s.State,
		FileName:   s.FileName,
		Period:     s.Period,
		UploadedBy: s.UploadedBy,
		Entries:    entries,
		Warnings:   warnings,
		CreatedAt:  s.CreatedAt,
	}
}

// Reassign sets the matched vehicle of one entry; nil marks it unmatched.
// Allowed any number of times while the session is Ready.
func (s *Session) Reassign(index int, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateReady {
		return ErrSessionClosed
	}
	if index < 0 || index >= len(s.Entries) {
		return ErrEntryIndex
	}
	s.Entries[index].Vehicle = v
	return nil
}

// SetKilometers edits the kilometer value of one entry. Negative values are
// rejected and the original value is retained. A manual edit clears the
// NoData flag: the user has confirmed the number.
func (s *Session) SetKilometers(index int, km decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateReady {
		return ErrSessionClosed
	}
	if index < 0 || index >= len(s.Entries) {
		return ErrEntryIndex
	}
	if km.IsNegative() {
		return ErrInvalidKilometers
	}
	s.Entries[index].Kilometers = km
	s.Entries[index].NoData = false
	return nil
}

// Confirm hands the full edited entry list to the caller for commit. There is
// no partial confirmation: all entries commit together.
func (s *Session) Confirm() ([]PreviewEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateReady {
		return nil, ErrSessionClosed
	}
	s.State = StateConfirmed
	out := make([]PreviewEntry, len(s.Entries))
	copy(out, s.Entries)
	return out, nil
}

// Cancel discards the session. No persisted side effects occur.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateReady {
		return ErrSessionClosed
	}
	s.State = StateCancelled
	return nil
}

// SessionStore keeps live preview sessions in memory, keyed by UUID, and
// expires abandoned ones with a background janitor.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store and starts its expiry janitor.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	st := &SessionStore{sessions: map[string]*Session{}, ttl: ttl}
	go st.janitor()
	return st
}

// Start parses a CSV export against the given vehicle snapshot and returns a
// Ready session. A parse failure creates no session and touches no state.
func (st *SessionStore) Start(fileName string, data []byte, vehicles []models.Vehicle, period time.Time, userID uint) (*Session, error) {
	s := st.newSession(fileName, data, period, userID)
	s.State = StateScanning

	res, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for _, pe := range res.Entries {
		s.Entries = append(s.Entries, PreviewEntry{
			ParsedEntry: pe,
			Vehicle:     Match(pe.VehicleName, vehicles),
		})
	}
	s.Warnings = res.Warnings
	s.State = StateReady

	st.put(s)
	return s, nil
}

// StartManual opens a session for a file format the parser does not handle
// (Excel exports are stored but never parsed). The session holds a single
// no-data entry whose kilometers must be entered by hand.
func (st *SessionStore) StartManual(fileName string, data []byte, period time.Time, userID uint) *Session {
	s := st.newSession(fileName, data, period, userID)
	s.Entries = []PreviewEntry{{ParsedEntry: ParsedEntry{Kilometers: decimal.Zero, NoData: true}}}
	s.State = StateReady
	st.put(s)
	return s
}

// Get returns a live session by id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove drops a session from the store once it is terminal.
func (st *SessionStore) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *SessionStore) newSession(fileName string, data []byte, period time.Time, userID uint) *Session {
	return &Session{
		ID:         uuid.NewString(),
		State:      StateIdle,
		FileName:   fileName,
		Period:     FirstOfMonth(period),
		UploadedBy: userID,
		CreatedAt:  time.Now(),
		raw:        data,
	}
}

func (st *SessionStore) put(s *Session) {
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
}

func (st *SessionStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-st.ttl)
		st.mu.Lock()
		for id, s := range st.sessions {
			if s.CreatedAt.Before(cutoff) {
				delete(st.sessions, id)
			}
		}
		st.mu.Unlock()
	}
}

// FirstOfMonth normalizes a timestamp to the first day of its calendar month,
// the canonical upload period representation.
func FirstOfMonth(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
