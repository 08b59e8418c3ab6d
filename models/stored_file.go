package models

import "time"

// StoredFile records a file archived on local disk: raw GPS exports kept
// under gps/{vehicleId}/{period}-{timestamp}-{filename}, receipt images, and
// backup archives. Path is relative to the configured storage root.
type StoredFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Path        string    `gorm:"size:512;not null" json:"path"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `json:"size"`
	Kind        string    `gorm:"size:32;index" json:"kind"` // gps | receipt | backup
	UploadedBy  uint      `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
