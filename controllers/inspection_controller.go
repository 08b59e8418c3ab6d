package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/utils"
)

// InspectionController records periodic vehicle checks.
type InspectionController struct {
	db *gorm.DB
}

// NewInspectionController creates a new InspectionController instance.
func NewInspectionController(db *gorm.DB) *InspectionController {
	return &InspectionController{db: db}
}

// Create records an inspection result.
func (i *InspectionController) Create(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40160, "unauthorized")
		return
	}
	var req struct {
		VehicleID   uint   `json:"vehicle_id" binding:"required"`
		InspectedAt string `json:"inspected_at"` // YYYY-MM-DD
		OdometerKm  string `json:"odometer_km"`
		Passed      bool   `json:"passed"`
		Items       string `json:"items"` // JSON checklist document
		Remarks     string `json:"remarks"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}

	var count int64
	if err := i.db.Model(&models.Vehicle{}).Where("id = ?", req.VehicleID).Count(&count).Error; err != nil || count == 0 {
		utils.Error(ctx, http.StatusNotFound, 40430, "vehicle not found")
		return
	}

	inspectedAt := time.Now()
	if req.InspectedAt != "" {
		t, err := time.Parse("2006-01-02", req.InspectedAt)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40071, "invalid inspection date")
			return
		}
		inspectedAt = t
	}
	odo := decimal.Zero
	if req.OdometerKm != "" {
		d, err := decimal.NewFromString(req.OdometerKm)
		if err != nil || d.IsNegative() {
			utils.Error(ctx, http.StatusBadRequest, 40072, "invalid odometer value")
			return
		}
		odo = d
	}

	inspection := models.Inspection{
		VehicleID:   req.VehicleID,
		InspectedAt: inspectedAt,
		OdometerKm:  odo,
		Passed:      req.Passed,
		Items:       req.Items,
		Remarks:     utils.Sanitize(req.Remarks),
		InspectedBy: userID,
	}
	if err := i.db.Create(&inspection).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to create inspection")
		return
	}
	utils.Success(ctx, inspection)
}

// List returns inspections, optionally filtered by vehicle.
func (i *InspectionController) List(ctx *gin.Context) {
	page, pageSize := pagination(ctx)

	q := i.db.Model(&models.Inspection{})
	if vid := ctx.Query("vehicle_id"); vid != "" {
		q = q.Where("vehicle_id = ?", vid)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to count inspections")
		return
	}
	var inspections []models.Inspection
	if err := q.Order("inspected_at desc, id desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&inspections).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list inspections")
		return
	}
	utils.Success(ctx, gin.H{"total": total, "page": page, "page_size": pageSize, "inspections": inspections})
}

// Get returns one inspection by ID.
func (i *InspectionController) Get(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40073, "invalid inspection id")
		return
	}
	var inspection models.Inspection
	if err := i.db.First(&inspection, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40460, "inspection not found")
		return
	}
	utils.Success(ctx, inspection)
}

// Delete removes an inspection record. Admin only.
func (i *InspectionController) Delete(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40360, "admin privileges required")
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40073, "invalid inspection id")
		return
	}
	if err := i.db.Delete(&models.Inspection{}, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to delete inspection")
		return
	}
	utils.Success(ctx, nil)
}
