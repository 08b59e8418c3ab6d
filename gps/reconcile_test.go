package gps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yonaskd/fleetms/models"
)

// fakeStore is an in-memory Store. It counts odometer calls so tests can
// assert the one-decrement-per-vehicle bulk rule, and can be told to fail a
// specific operation to exercise abort behavior.
type fakeStore struct {
	nextID    uint
	records   map[uint]models.GPSUploadRecord
	odometers map[uint]decimal.Decimal

	subtractCalls map[uint]int
	failInsertAt  int // fail the Nth insert (1-based), 0 = never
	inserts       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:        1,
		records:       map[uint]models.GPSUploadRecord{},
		odometers:     map[uint]decimal.Decimal{},
		subtractCalls: map[uint]int{},
	}
}

func (f *fakeStore) Transaction(ctx context.Context, fn func(Store) error) error {
	// Commit/rollback granularity is not modeled; tests target call patterns.
	return fn(f)
}

func (f *fakeStore) InsertRecord(ctx context.Context, rec *models.GPSUploadRecord) error {
	f.inserts++
	if f.failInsertAt != 0 && f.inserts == f.failInsertAt {
		return errors.New("insert failed")
	}
	rec.ID = f.nextID
	f.nextID++
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeStore) RecordByID(ctx context.Context, id uint) (*models.GPSUploadRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &rec, nil
}

func (f *fakeStore) RecordsByIDs(ctx context.Context, ids []uint) ([]models.GPSUploadRecord, error) {
	var out []models.GPSUploadRecord
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) AllRecordIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) DeleteRecords(ctx context.Context, ids []uint) error {
	for _, id := range ids {
		delete(f.records, id)
	}
	return nil
}

func (f *fakeStore) AddOdometer(ctx context.Context, vehicleID uint, km decimal.Decimal) error {
	f.odometers[vehicleID] = f.odometers[vehicleID].Add(km)
	return nil
}

func (f *fakeStore) SubtractOdometer(ctx context.Context, vehicleID uint, km decimal.Decimal) error {
	f.subtractCalls[vehicleID]++
	next := f.odometers[vehicleID].Sub(km)
	if next.IsNegative() {
		next = decimal.Zero
	}
	f.odometers[vehicleID] = next
	return nil
}

func entry(name string, kms int64, vehicle *models.Vehicle) PreviewEntry {
	return PreviewEntry{
		ParsedEntry: ParsedEntry{VehicleName: name, Kilometers: decimal.NewFromInt(kms)},
		Vehicle:     vehicle,
	}
}

var testMeta = CommitMeta{FileName: "march.csv", Period: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), UploadedBy: 7}

func TestCommitWritesRecordsAndOdometer(t *testing.T) {
	f := newFakeStore()
	f.odometers[1] = decimal.NewFromInt(1000)
	r := NewReconciler(f, nil)
	truck := &models.Vehicle{ID: 1, Plate: "Truck1"}

	recs, err := r.Commit(context.Background(), []PreviewEntry{
		entry("Truck1", 150, truck),
		entry("Ghost 9", 80, nil), // unmatched, still persisted
		entry("Van2", 0, &models.Vehicle{ID: 2, Plate: "Van2"}),
	}, testMeta)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("committed = %d, want 3", len(recs))
	}

	if recs[0].VehicleID == nil || *recs[0].VehicleID != 1 {
		t.Error("matched entry must carry vehicle id")
	}
	if recs[1].VehicleID != nil {
		t.Error("unmatched entry must persist with nil vehicle id")
	}
	if recs[1].GPSVehicleName != "Ghost 9" {
		t.Error("original gps label must be retained")
	}
	if !recs[0].UploadPeriod.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period = %s, want normalized to first of month", recs[0].UploadPeriod)
	}

	// Only the matched, positive-km entry moves an odometer.
	if !f.odometers[1].Equal(decimal.NewFromInt(1150)) {
		t.Errorf("odometer[1] = %s, want 1150", f.odometers[1])
	}
	if !f.odometers[2].IsZero() {
		t.Errorf("odometer[2] = %s, want untouched for zero-km entry", f.odometers[2])
	}
}

func TestCommitSameVehicleTwiceBothPost(t *testing.T) {
	f := newFakeStore()
	r := NewReconciler(f, nil)
	truck := &models.Vehicle{ID: 1}

	recs, err := r.Commit(context.Background(), []PreviewEntry{
		entry("Truck1", 100, truck),
		entry("Truck1", 50, truck),
	}, testMeta)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("no deduplication allowed: committed = %d, want 2", len(recs))
	}
	if !f.odometers[1].Equal(decimal.NewFromInt(150)) {
		t.Errorf("odometer = %s, want 150", f.odometers[1])
	}
}

func TestCommitFailureAbortsRemaining(t *testing.T) {
	f := newFakeStore()
	f.failInsertAt = 2
	r := NewReconciler(f, nil)
	truck := &models.Vehicle{ID: 1}

	recs, err := r.Commit(context.Background(), []PreviewEntry{
		entry("a", 10, truck),
		entry("b", 20, truck),
		entry("c", 30, truck),
	}, testMeta)
	if err == nil {
		t.Fatal("want error from failed insert")
	}
	// Already-written records are kept, the rest never run: no rollback, no retry.
	if len(recs) != 1 {
		t.Fatalf("committed before failure = %d, want 1", len(recs))
	}
	if f.inserts != 2 {
		t.Fatalf("inserts attempted = %d, want 2 (third entry aborted)", f.inserts)
	}
	if !f.odometers[1].Equal(decimal.NewFromInt(10)) {
		t.Errorf("odometer = %s, want 10", f.odometers[1])
	}
}

func TestDeleteRecordReversesOdometer(t *testing.T) {
	f := newFakeStore()
	f.odometers[1] = decimal.NewFromInt(500)
	r := NewReconciler(f, nil)

	recs, err := r.Commit(context.Background(), []PreviewEntry{entry("t", 120, &models.Vehicle{ID: 1})}, testMeta)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := r.DeleteRecord(context.Background(), recs[0].ID); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if !f.odometers[1].Equal(decimal.NewFromInt(500)) {
		t.Errorf("odometer = %s, want restored to 500", f.odometers[1])
	}
	if len(f.records) != 0 {
		t.Error("record must be removed")
	}
}

func TestDeleteClampsAtZero(t *testing.T) {
	f := newFakeStore()
	vid := uint(1)
	f.records[9] = models.GPSUploadRecord{ID: 9, VehicleID: &vid, Kilometers: decimal.NewFromInt(800)}
	f.odometers[1] = decimal.NewFromInt(500)
	r := NewReconciler(f, nil)

	if err := r.DeleteRecord(context.Background(), 9); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if !f.odometers[1].IsZero() {
		t.Errorf("odometer = %s, want clamped to exactly 0", f.odometers[1])
	}
}

func TestBulkDeleteGroupsPerVehicle(t *testing.T) {
	f := newFakeStore()
	vid := uint(1)
	f.records[1] = models.GPSUploadRecord{ID: 1, VehicleID: &vid, Kilometers: decimal.NewFromInt(100)}
	f.records[2] = models.GPSUploadRecord{ID: 2, VehicleID: &vid, Kilometers: decimal.NewFromInt(50)}
	f.odometers[1] = decimal.NewFromInt(500)
	r := NewReconciler(f, nil)

	n, err := r.DeleteRecords(context.Background(), []uint{1, 2})
	if err != nil {
		t.Fatalf("DeleteRecords: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}
	if !f.odometers[1].Equal(decimal.NewFromInt(350)) {
		t.Errorf("odometer = %s, want 350 (500 - 150 in one decrement)", f.odometers[1])
	}
	if f.subtractCalls[1] != 1 {
		t.Errorf("subtract calls = %d, want exactly one summed decrement per vehicle", f.subtractCalls[1])
	}
}

func TestBulkDeleteAll(t *testing.T) {
	f := newFakeStore()
	v1, v2 := uint(1), uint(2)
	f.records[1] = models.GPSUploadRecord{ID: 1, VehicleID: &v1, Kilometers: decimal.NewFromInt(30)}
	f.records[2] = models.GPSUploadRecord{ID: 2, VehicleID: &v2, Kilometers: decimal.NewFromInt(70)}
	f.records[3] = models.GPSUploadRecord{ID: 3, Kilometers: decimal.NewFromInt(40)} // unmatched
	f.odometers[1] = decimal.NewFromInt(100)
	f.odometers[2] = decimal.NewFromInt(100)
	r := NewReconciler(f, nil)

	n, err := r.DeleteRecords(context.Background(), nil)
	if err != nil {
		t.Fatalf("DeleteRecords: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted = %d, want 3", n)
	}
	if len(f.records) != 0 {
		t.Error("all records must be removed")
	}
	if !f.odometers[1].Equal(decimal.NewFromInt(70)) || !f.odometers[2].Equal(decimal.NewFromInt(30)) {
		t.Errorf("odometers = %s/%s, want 70/30", f.odometers[1], f.odometers[2])
	}
}

func TestBulkDeleteNothing(t *testing.T) {
	r := NewReconciler(newFakeStore(), nil)
	if _, err := r.DeleteRecords(context.Background(), []uint{42}); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
}

// Re-adding an identical record after deletion restores the odometer only in
// the absence of concurrent mutations. This documents the known limitation of
// the stored running total, it is not a guarantee.
func TestDeleteReaddNotIdempotentUnderConcurrentMutation(t *testing.T) {
	f := newFakeStore()
	f.odometers[1] = decimal.NewFromInt(500)
	r := NewReconciler(f, nil)
	truck := &models.Vehicle{ID: 1}

	recs, err := r.Commit(context.Background(), []PreviewEntry{entry("t", 100, truck)}, testMeta)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := r.DeleteRecord(context.Background(), recs[0].ID); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	// A concurrent actor moves the odometer between delete and re-add.
	f.odometers[1] = f.odometers[1].Add(decimal.NewFromInt(33))

	if _, err := r.Commit(context.Background(), []PreviewEntry{entry("t", 100, truck)}, testMeta); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if f.odometers[1].Equal(decimal.NewFromInt(600)) {
		t.Fatal("pre-deletion value should not be restored once another mutation interleaved")
	}
	if !f.odometers[1].Equal(decimal.NewFromInt(633)) {
		t.Errorf("odometer = %s, want 633", f.odometers[1])
	}
}
