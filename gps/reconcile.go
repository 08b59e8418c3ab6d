package gps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yonaskd/fleetms/models"
)

// ErrNoRecords is returned by batch deletion when no target records exist.
var ErrNoRecords = errors.New("gps: no records to delete")

// Store is the persistence surface the reconciler needs. Odometer writes are
// expected to be single atomic SQL expressions: AddOdometer increments and
// SubtractOdometer decrements clamped at a floor of zero, so that concurrent
// commits against the same vehicle cannot lose updates.
type Store interface {
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(Store) error) error

	InsertRecord(ctx context.Context, rec *models.GPSUploadRecord) error
	RecordByID(ctx context.Context, id uint) (*models.GPSUploadRecord, error)
	RecordsByIDs(ctx context.Context, ids []uint) ([]models.GPSUploadRecord, error)
	AllRecordIDs(ctx context.Context) ([]uint, error)
	DeleteRecords(ctx context.Context, ids []uint) error

	AddOdometer(ctx context.Context, vehicleID uint, km decimal.Decimal) error
	SubtractOdometer(ctx context.Context, vehicleID uint, km decimal.Decimal) error
}

// CommitMeta carries the file-level attributes shared by all records of one
// upload.
type CommitMeta struct {
	FileName   string
	Period     time.Time
	UploadedBy uint
}

// Reconciler turns confirmed preview entries into persisted effects: one
// audit record per entry plus the matching odometer adjustment. The audit
// insert and the odometer write happen inside the same transaction, so a
// failure between them cannot leave the odometer drifting from the audit
// trail.
type Reconciler struct {
	store Store
	log   *zap.SugaredLogger
}

// NewReconciler wires a reconciler to its persistence store.
func NewReconciler(store Store, log *zap.SugaredLogger) *Reconciler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reconciler{store: store, log: log}
}

// Commit persists the confirmed entries in array order. Entries referencing
// the same vehicle are not deduplicated: each posts independently and each
// adjusts the odometer. A failure aborts the remaining entries; records
// already written are kept and returned alongside the error. There is no
// automatic retry.
func (r *Reconciler) Commit(ctx context.Context, entries []PreviewEntry, meta CommitMeta) ([]models.GPSUploadRecord, error) {
	period := FirstOfMonth(meta.Period)
	committed := make([]models.GPSUploadRecord, 0, len(entries))

	for i, e := range entries {
		rec := models.GPSUploadRecord{
			GPSVehicleName: e.VehicleName,
			FileName:       meta.FileName,
			UploadPeriod:   period,
			Kilometers:     e.Kilometers,
			UploadedBy:     meta.UploadedBy,
		}
		if e.Vehicle != nil {
			id := e.Vehicle.ID
			rec.VehicleID = &id
		}

		err := r.store.Transaction(ctx, func(s Store) error {
			if err := s.InsertRecord(ctx, &rec); err != nil {
				return err
			}
			if rec.VehicleID != nil && rec.Kilometers.IsPositive() {
				return s.AddOdometer(ctx, *rec.VehicleID, rec.Kilometers)
			}
			return nil
		})
		if err != nil {
			r.log.Errorw("gps commit aborted", "entry", i, "vehicle_name", e.VehicleName, "err", err)
			return committed, fmt.Errorf("commit entry %d (%q): %w", i, e.VehicleName, err)
		}
		committed = append(committed, rec)
	}

	r.log.Infow("gps upload committed", "file", meta.FileName, "period", period.Format("2006-01"), "records", len(committed))
	return committed, nil
}

// DeleteRecord removes one audit record and subtracts its kilometers back
// out of the vehicle odometer, clamped at zero. The odometer never goes
// negative: over-subtraction is silently absorbed, not an error.
func (r *Reconciler) DeleteRecord(ctx context.Context, id uint) error {
	return r.store.Transaction(ctx, func(s Store) error {
		rec, err := s.RecordByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.DeleteRecords(ctx, []uint{rec.ID}); err != nil {
			return err
		}
		if rec.VehicleID != nil && rec.Kilometers.IsPositive() {
			return s.SubtractOdometer(ctx, *rec.VehicleID, rec.Kilometers)
		}
		return nil
	})
}

// DeleteRecords removes a batch of audit records. Targets are grouped by
// vehicle and each affected vehicle receives exactly one summed decrement,
// never one decrement per record: sequential per-record decrements would
// read stale odometer values and under-subtract when several records hit
// the same vehicle. Passing no ids deletes all records.
func (r *Reconciler) DeleteRecords(ctx context.Context, ids []uint) (int, error) {
	var deleted int
	err := r.store.Transaction(ctx, func(s Store) error {
		var err error
		if len(ids) == 0 {
			if ids, err = s.AllRecordIDs(ctx); err != nil {
				return err
			}
		}
		recs, err := s.RecordsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return ErrNoRecords
		}

		perVehicle := map[uint]decimal.Decimal{}
		order := []uint{}
		target := make([]uint, 0, len(recs))
		for _, rec := range recs {
			target = append(target, rec.ID)
			if rec.VehicleID == nil || !rec.Kilometers.IsPositive() {
				continue
			}
			vid := *rec.VehicleID
			if _, ok := perVehicle[vid]; !ok {
				order = append(order, vid)
			}
			perVehicle[vid] = perVehicle[vid].Add(rec.Kilometers)
		}

		if err := s.DeleteRecords(ctx, target); err != nil {
			return err
		}
		for _, vid := range order {
			if err := s.SubtractOdometer(ctx, vid, perVehicle[vid]); err != nil {
				return err
			}
		}
		deleted = len(target)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Infow("gps records deleted", "count", deleted)
	return deleted, nil
}
