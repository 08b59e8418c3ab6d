package gps

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/models"
)

// GormStore implements Store on top of gorm/MySQL. Odometer adjustments are
// single UPDATE expressions evaluated server-side, never read-modify-write
// in application code.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction runs fn against a store bound to one database transaction.
func (g *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (g *GormStore) InsertRecord(ctx context.Context, rec *models.GPSUploadRecord) error {
	return g.db.WithContext(ctx).Create(rec).Error
}

func (g *GormStore) RecordByID(ctx context.Context, id uint) (*models.GPSUploadRecord, error) {
	var rec models.GPSUploadRecord
	if err := g.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *GormStore) RecordsByIDs(ctx context.Context, ids []uint) ([]models.GPSUploadRecord, error) {
	var recs []models.GPSUploadRecord
	if err := g.db.WithContext(ctx).Find(&recs, ids).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (g *GormStore) AllRecordIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := g.db.WithContext(ctx).Model(&models.GPSUploadRecord{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (g *GormStore) DeleteRecords(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Delete(&models.GPSUploadRecord{}, ids).Error
}

func (g *GormStore) AddOdometer(ctx context.Context, vehicleID uint, km decimal.Decimal) error {
	return g.db.WithContext(ctx).Model(&models.Vehicle{}).
		Where("id = ?", vehicleID).
		UpdateColumn("odometer_km", gorm.Expr("odometer_km + ?", km)).Error
}

// SubtractOdometer decrements clamped at zero; the floor is a saturating
// policy, not an error.
func (g *GormStore) SubtractOdometer(ctx context.Context, vehicleID uint, km decimal.Decimal) error {
	return g.db.WithContext(ctx).Model(&models.Vehicle{}).
		Where("id = ?", vehicleID).
		UpdateColumn("odometer_km", gorm.Expr("GREATEST(odometer_km - ?, 0)", km)).Error
}
