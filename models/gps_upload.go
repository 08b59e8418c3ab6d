package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GPSUploadRecord is one committed row of GPS mileage history. A record with
// VehicleID nil is "unmatched": its source row could not be mapped to a fleet
// vehicle, but it is still persisted for period and total reporting.
// GPSVehicleName always keeps the free-text label from the source file, even
// when a vehicle was matched. UploadPeriod is normalized to the first day of
// its month. Kilometers is never negative.
//
// Unlike expenses, GPS records are hard-deleted; deletion must co-occur with
// the matching odometer reversal (see gps.Reconciler).
type GPSUploadRecord struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	VehicleID      *uint           `gorm:"index" json:"vehicle_id"`
	GPSVehicleName string          `gorm:"size:128;not null" json:"gps_vehicle_name"`
	FileName       string          `gorm:"size:255" json:"file_name"`
	UploadPeriod   time.Time       `gorm:"index" json:"upload_period"`
	Kilometers     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"kilometers"`
	UploadedBy     uint            `json:"uploaded_by"`
	CreatedAt      time.Time       `json:"created_at"`
}
