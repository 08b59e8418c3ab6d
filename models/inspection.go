package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inspection records one periodic vehicle check, including the odometer
// reading observed at inspection time. Items is a JSON document of the
// checklist results.
type Inspection struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	VehicleID   uint            `gorm:"index;not null" json:"vehicle_id"`
	InspectedAt time.Time       `gorm:"index" json:"inspected_at"`
	OdometerKm  decimal.Decimal `gorm:"type:decimal(12,2)" json:"odometer_km"`
	Passed      bool            `json:"passed"`
	Items       string          `gorm:"type:text" json:"items"`
	Remarks     string          `gorm:"size:512" json:"remarks"`
	InspectedBy uint            `json:"inspected_by"`
	CreatedAt   time.Time       `json:"created_at"`
}
