package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is a vehicle cost entry, optionally created from a scanned fuel
// receipt. Expenses are soft-deleted so accidental removals stay recoverable.
type Expense struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	VehicleID   uint             `gorm:"index;not null" json:"vehicle_id"`
	CategoryID  *uint            `gorm:"index" json:"category_id"`
	VendorID    *uint            `gorm:"index" json:"vendor_id"`
	BranchID    *uint            `gorm:"index" json:"branch_id"`
	Amount      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	Liters      *decimal.Decimal `gorm:"type:decimal(10,2)" json:"liters"` // fuel entries only
	ExpenseDate time.Time        `gorm:"index" json:"expense_date"`
	Notes       string           `gorm:"size:512" json:"notes"`
	ReceiptID   *uint            `json:"receipt_id"` // StoredFile of the receipt image
	Scanned     bool             `gorm:"default:false" json:"scanned"`
	CreatedBy   uint             `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = now
	}
	e.UpdatedAt = now
	return nil
}
