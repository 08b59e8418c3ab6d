package gps

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yonaskd/fleetms/models"
)

var testFleet = []models.Vehicle{
	{ID: 1, Plate: "Truck1"},
	{ID: 2, Plate: "Van2"},
}

func startSession(t *testing.T) (*SessionStore, *Session) {
	t.Helper()
	st := NewSessionStore(time.Minute)
	csv := "vehicle,km\nTruck1,120\nTruck1,30\nVan2,abc\n"
	s, err := st.Start("march.csv", []byte(csv), testFleet, time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC), 7)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return st, s
}

func TestSessionStartMatchesAndNormalizesPeriod(t *testing.T) {
	st, s := startSession(t)

	if s.State != StateReady {
		t.Fatalf("state = %s, want ready", s.State)
	}
	if !s.Period.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period = %s, want first of month", s.Period)
	}
	if s.Entries[0].Vehicle == nil || s.Entries[0].Vehicle.ID != 1 {
		t.Errorf("Truck1 should auto-match vehicle 1")
	}
	if s.Entries[1].Vehicle == nil || s.Entries[1].Vehicle.ID != 2 {
		t.Errorf("Van2 should auto-match vehicle 2")
	}
	if got, ok := st.Get(s.ID); !ok || got != s {
		t.Error("session should be retrievable by id")
	}
}

func TestSessionStartParseFailureCreatesNothing(t *testing.T) {
	st := NewSessionStore(time.Minute)
	_, err := st.Start("bad.csv", []byte("only one line"), testFleet, time.Now(), 7)
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("err = %v, want ErrEmptyFile", err)
	}
	st.mu.Lock()
	n := len(st.sessions)
	st.mu.Unlock()
	if n != 0 {
		t.Fatalf("store holds %d sessions after failed start, want 0", n)
	}
}

func TestSessionEdits(t *testing.T) {
	_, s := startSession(t)

	// Re-match freely, including to "none".
	if err := s.Reassign(1, nil); err != nil {
		t.Fatalf("Reassign to none: %v", err)
	}
	if s.Entries[1].Vehicle != nil {
		t.Error("entry should be unmatched after reassign to none")
	}
	if err := s.Reassign(1, &testFleet[0]); err != nil {
		t.Fatalf("Reassign: %v", err)
	}

	// Valid kilometer edit clears NoData.
	if err := s.SetKilometers(1, decimal.NewFromInt(75)); err != nil {
		t.Fatalf("SetKilometers: %v", err)
	}
	if !s.Entries[1].Kilometers.Equal(decimal.NewFromInt(75)) || s.Entries[1].NoData {
		t.Errorf("entry after edit = %+v", s.Entries[1])
	}

	// Negative edit is rejected and the original value retained.
	if err := s.SetKilometers(1, decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidKilometers) {
		t.Fatalf("negative edit err = %v, want ErrInvalidKilometers", err)
	}
	if !s.Entries[1].Kilometers.Equal(decimal.NewFromInt(75)) {
		t.Error("rejected edit must not change the value")
	}

	if err := s.SetKilometers(9, decimal.NewFromInt(1)); !errors.Is(err, ErrEntryIndex) {
		t.Fatalf("out of range err = %v, want ErrEntryIndex", err)
	}
}

func TestSessionTerminalStates(t *testing.T) {
	_, s := startSession(t)

	entries, err := s.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("confirmed entries = %d, want 2", len(entries))
	}
	if s.State != StateConfirmed {
		t.Fatalf("state = %s, want confirmed", s.State)
	}

	// Terminal states are not re-enterable.
	if _, err := s.Confirm(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second Confirm err = %v, want ErrSessionClosed", err)
	}
	if err := s.Cancel(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Cancel after Confirm err = %v, want ErrSessionClosed", err)
	}
	if err := s.Reassign(0, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Reassign after Confirm err = %v, want ErrSessionClosed", err)
	}
	if err := s.SetKilometers(0, decimal.NewFromInt(1)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SetKilometers after Confirm err = %v, want ErrSessionClosed", err)
	}
}

func TestSessionCancelDiscards(t *testing.T) {
	_, s := startSession(t)
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", s.State)
	}
	if _, err := s.Confirm(); !errors.Is(err, ErrSessionClosed) {
		t.Error("confirm after cancel must fail")
	}
}

func TestSessionStartManual(t *testing.T) {
	st := NewSessionStore(time.Minute)
	s := st.StartManual("tracker.xlsx", []byte{0x50, 0x4b}, time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC), 3)

	if s.State != StateReady {
		t.Fatalf("state = %s, want ready", s.State)
	}
	if len(s.Entries) != 1 || !s.Entries[0].NoData || !s.Entries[0].Kilometers.IsZero() {
		t.Fatalf("manual session entries = %+v, want single no-data zero entry", s.Entries)
	}
	// Kilometers must be entered by hand before the session is worth confirming.
	if err := s.SetKilometers(0, decimal.NewFromInt(640)); err != nil {
		t.Fatalf("SetKilometers: %v", err)
	}
	if s.Entries[0].NoData {
		t.Error("manual edit should clear NoData")
	}
}

func TestSnapshotCopiesStateUnderLock(t *testing.T) {
	_, s := startSession(t)

	view := s.Snapshot()
	if view.ID != s.ID || view.State != StateReady || len(view.Entries) != 2 {
		t.Fatalf("snapshot mismatch: %+v", view)
	}

	// A later edit must not leak into the snapshot already taken.
	if err := s.SetKilometers(0, decimal.NewFromInt(999)); err != nil {
		t.Fatalf("SetKilometers: %v", err)
	}
	if !view.Entries[0].Kilometers.Equal(decimal.NewFromInt(150)) {
		t.Errorf("snapshot entry mutated: %s", view.Entries[0].Kilometers)
	}
}

func TestSnapshotSafeDuringConcurrentEdits(t *testing.T) {
	_, s := startSession(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.SetKilometers(0, decimal.NewFromInt(int64(i)))
			_ = s.Reassign(1, &testFleet[0])
		}
	}()
	for i := 0; i < 200; i++ {
		view := s.Snapshot()
		if _, err := json.Marshal(view); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	<-done
}
