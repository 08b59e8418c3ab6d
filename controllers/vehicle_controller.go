package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/utils"
)

const vehicleCacheKey = "cache:vehicles:all"

// loadVehicleSnapshot returns the full registry, preferring the Redis
// snapshot and falling back to the database (rewarming the cache on a
// miss). The GPS matcher reads the registry through this path.
func loadVehicleSnapshot(db *gorm.DB) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if utils.CacheGetJSON(vehicleCacheKey, &vehicles) {
		return vehicles, nil
	}
	if err := db.Order("plate asc").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(vehicleCacheKey, vehicles, 10*time.Minute)
	return vehicles, nil
}

// VehicleController manages the fleet vehicle registry.
type VehicleController struct {
	db *gorm.DB
}

// NewVehicleController creates a new VehicleController instance.
func NewVehicleController(db *gorm.DB) *VehicleController {
	return &VehicleController{db: db}
}

// List returns all vehicles, served from Redis when warm. The cached
// snapshot includes odometer values, so every odometer write must
// invalidate it.
func (v *VehicleController) List(ctx *gin.Context) {
	unfiltered := ctx.Query("branch_id") == "" && ctx.Query("status") == "" && ctx.Query("q") == ""
	if unfiltered {
		vehicles, err := loadVehicleSnapshot(v.db)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list vehicles")
			return
		}
		utils.Success(ctx, vehicles)
		return
	}

	var vehicles []models.Vehicle
	q := v.db.Order("plate asc")
	if branch := ctx.Query("branch_id"); branch != "" {
		q = q.Where("branch_id = ?", branch)
	}
	if status := ctx.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if search := ctx.Query("q"); search != "" {
		like := "%" + strings.ToUpper(search) + "%"
		q = q.Where("plate LIKE ? OR vin LIKE ?", like, like)
	}
	if err := q.Find(&vehicles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list vehicles")
		return
	}

	utils.Success(ctx, vehicles)
}

// Get returns one vehicle by ID.
func (v *VehicleController) Get(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid vehicle id")
		return
	}
	var vehicle models.Vehicle
	if err := v.db.First(&vehicle, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "vehicle not found")
		return
	}
	utils.Success(ctx, vehicle)
}

type vehicleRequest struct {
	Plate      string `json:"plate" binding:"required,min=2,max=32"`
	VIN        string `json:"vin"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
	BranchID   *uint  `json:"branch_id"`
	Status     string `json:"status"`
	OdometerKm string `json:"odometer_km"` // initial reading, create only
}

// Create registers a new vehicle. The initial odometer reading may be
// supplied here; afterwards the value only moves through GPS commits and
// deletions.
func (v *VehicleController) Create(ctx *gin.Context) {
	var req vehicleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}

	odo := decimal.Zero
	if req.OdometerKm != "" {
		d, err := decimal.NewFromString(req.OdometerKm)
		if err != nil || d.IsNegative() {
			utils.Error(ctx, http.StatusBadRequest, 40032, "invalid odometer value")
			return
		}
		odo = d
	}

	vehicle := models.Vehicle{
		Plate:      strings.ToUpper(utils.Sanitize(req.Plate)),
		VIN:        strings.ToUpper(utils.Sanitize(req.VIN)),
		Make:       utils.Sanitize(req.Make),
		Model:      utils.Sanitize(req.Model),
		Year:       req.Year,
		BranchID:   req.BranchID,
		Status:     defaultStatus(req.Status),
		OdometerKm: odo,
	}
	if err := v.db.Create(&vehicle).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40930, "plate already registered")
		return
	}

	utils.InvalidateByPrefix(vehicleCacheKey)
	utils.Success(ctx, vehicle)
}

// Update modifies registry fields. The odometer is deliberately not
// editable here.
func (v *VehicleController) Update(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid vehicle id")
		return
	}
	var vehicle models.Vehicle
	if err := v.db.First(&vehicle, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "vehicle not found")
		return
	}

	var req vehicleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}

	vehicle.Plate = strings.ToUpper(utils.Sanitize(req.Plate))
	vehicle.VIN = strings.ToUpper(utils.Sanitize(req.VIN))
	vehicle.Make = utils.Sanitize(req.Make)
	vehicle.Model = utils.Sanitize(req.Model)
	vehicle.Year = req.Year
	vehicle.BranchID = req.BranchID
	vehicle.Status = defaultStatus(req.Status)

	if err := v.db.Model(&vehicle).Select(
		"plate", "vin", "make", "model", "year", "branch_id", "status", "updated_at",
	).Updates(&vehicle).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update vehicle")
		return
	}

	utils.InvalidateByPrefix(vehicleCacheKey)
	utils.Success(ctx, vehicle)
}

// Delete soft-deletes a vehicle. Its GPS history and expenses are kept.
func (v *VehicleController) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid vehicle id")
		return
	}
	if err := v.db.Delete(&models.Vehicle{}, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to delete vehicle")
		return
	}
	utils.InvalidateByPrefix(vehicleCacheKey)
	utils.Success(ctx, nil)
}

func defaultStatus(s string) string {
	switch s {
	case "active", "maintenance", "retired":
		return s
	default:
		return "active"
	}
}
