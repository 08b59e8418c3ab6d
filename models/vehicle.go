package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vehicle is one fleet vehicle. OdometerKm is a running total in kilometers;
// it must only ever be changed through atomic SQL expressions (see gps.Store)
// so that concurrent GPS commits and deletions cannot lose updates.
type Vehicle struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Plate      string          `gorm:"size:32;not null;uniqueIndex" json:"plate"`
	VIN        string          `gorm:"size:32;index" json:"vin"`
	Make       string          `gorm:"size:64" json:"make"`
	Model      string          `gorm:"size:64" json:"model"`
	Year       int             `json:"year"`
	BranchID   *uint           `gorm:"index" json:"branch_id"`
	Status     string          `gorm:"size:32;default:active" json:"status"`
	OdometerKm decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"odometer_km"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (v *Vehicle) BeforeUpdate(tx *gorm.DB) error {
	v.UpdatedAt = time.Now()
	return nil
}
