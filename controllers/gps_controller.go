package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/config"
	"github.com/yonaskd/fleetms/gps"
	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/storage"
	"github.com/yonaskd/fleetms/utils"
)

// GPSController drives the mileage import pipeline: upload → preview/edit →
// confirm or cancel, plus the committed record history and its undo surface.
type GPSController struct {
	db         *gorm.DB
	sessions   *gps.SessionStore
	reconciler *gps.Reconciler
	files      *storage.Store
}

// NewGPSController wires the controller to its session store, reconciler and
// file archive.
func NewGPSController(db *gorm.DB, sessions *gps.SessionStore, rec *gps.Reconciler, files *storage.Store) *GPSController {
	return &GPSController{db: db, sessions: sessions, reconciler: rec, files: files}
}

// Upload accepts a GPS export file and opens a preview session. Nothing is
// persisted until the session is confirmed. Spreadsheet files are accepted
// in degraded mode: archived with a single editable zero entry instead of
// being parsed.
func (g *GPSController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40140, "unauthorized")
		return
	}

	period, err := parsePeriod(ctx.PostForm("period"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "period must be in YYYY-MM format")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "file is required")
		return
	}
	cfg := config.Get()
	if fileHeader.Size > int64(cfg.MaxUploadSizeMB)<<20 {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 40042, "file too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "failed to read file")
		return
	}

	fileName := filepath.Base(fileHeader.Filename)
	ext := strings.ToLower(filepath.Ext(fileName))

	// Spreadsheet exports vary too much to parse reliably. Store the file
	// and let the user key the total in by hand.
	if ext == ".xlsx" || ext == ".xls" {
		session := g.sessions.StartManual(fileName, data, period, userID)
		utils.Success(ctx, session.Snapshot())
		return
	}

	vehicles, err := loadVehicleSnapshot(g.db)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load vehicles")
		return
	}

	session, err := g.sessions.Start(fileName, data, vehicles, period, userID)
	if err != nil {
		switch {
		case errors.Is(err, gps.ErrEmptyFile):
			utils.Error(ctx, http.StatusBadRequest, 40044, "file contains no data rows")
		case errors.Is(err, gps.ErrNoDistanceData):
			utils.Error(ctx, http.StatusBadRequest, 40045, "no usable distance data found in file")
		default:
			utils.Error(ctx, http.StatusBadRequest, 40046, "failed to parse file")
		}
		return
	}

	utils.Success(ctx, session.Snapshot())
}

// GetSession returns the current preview state for polling clients.
func (g *GPSController) GetSession(ctx *gin.Context) {
	session, ok := g.sessions.Get(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40440, "session not found or expired")
		return
	}
	utils.Success(ctx, session.Snapshot())
}

// UpdateEntry edits one preview entry: its kilometers, its vehicle
// assignment, or both. vehicle_id 0 detaches the entry.
func (g *GPSController) UpdateEntry(ctx *gin.Context) {
	session, ok := g.sessions.Get(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40440, "session not found or expired")
		return
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40047, "invalid entry index")
		return
	}

	var req struct {
		Kilometers *string `json:"kilometers"`
		VehicleID  *uint   `json:"vehicle_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40048, "invalid request payload")
		return
	}

	if req.Kilometers != nil {
		km, err := decimal.NewFromString(*req.Kilometers)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40049, "kilometers must be a number")
			return
		}
		if err := session.SetKilometers(index, km); err != nil {
			respondSessionError(ctx, err)
			return
		}
	}

	if req.VehicleID != nil {
		var vehicle *models.Vehicle
		if *req.VehicleID != 0 {
			var v models.Vehicle
			if err := g.db.First(&v, *req.VehicleID).Error; err != nil {
				utils.Error(ctx, http.StatusNotFound, 40430, "vehicle not found")
				return
			}
			vehicle = &v
		}
		if err := session.Reassign(index, vehicle); err != nil {
			respondSessionError(ctx, err)
			return
		}
	}

	utils.Success(ctx, session.Snapshot())
}

// Confirm commits the session: archives the original file, writes one audit
// record per entry and posts the matched odometer increments. On a partial
// failure the records already committed are reported back.
func (g *GPSController) Confirm(ctx *gin.Context) {
	session, ok := g.sessions.Get(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40440, "session not found or expired")
		return
	}

	entries, err := session.Confirm()
	if err != nil {
		respondSessionError(ctx, err)
		return
	}
	defer g.sessions.Remove(session.ID)

	g.archiveUpload(ctx, session, entries)

	records, err := g.reconciler.Commit(ctx.Request.Context(), entries, gps.CommitMeta{
		FileName:   session.FileName,
		Period:     session.Period,
		UploadedBy: session.UploadedBy,
	})
	if err != nil {
		utils.Respond(ctx, http.StatusInternalServerError, 50041,
			"commit aborted after partial write", gin.H{"committed": records})
		return
	}

	utils.InvalidateByPrefix(vehicleCacheKey)
	utils.Success(ctx, gin.H{"records": records})
}

// Cancel discards the session without side effects.
func (g *GPSController) Cancel(ctx *gin.Context) {
	session, ok := g.sessions.Get(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40440, "session not found or expired")
		return
	}
	if err := session.Cancel(); err != nil {
		respondSessionError(ctx, err)
		return
	}
	g.sessions.Remove(session.ID)
	utils.Success(ctx, nil)
}

// ListRecords returns committed GPS history, filterable by vehicle and
// period, newest first.
func (g *GPSController) ListRecords(ctx *gin.Context) {
	page, pageSize := pagination(ctx)

	q := g.db.Model(&models.GPSUploadRecord{})
	if vid := ctx.Query("vehicle_id"); vid != "" {
		q = q.Where("vehicle_id = ?", vid)
	}
	if p := ctx.Query("period"); p != "" {
		period, err := parsePeriod(p)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40040, "period must be in YYYY-MM format")
			return
		}
		q = q.Where("upload_period = ?", period)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to count records")
		return
	}
	var records []models.GPSUploadRecord
	if err := q.Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&records).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to list records")
		return
	}

	utils.Success(ctx, gin.H{"total": total, "page": page, "page_size": pageSize, "records": records})
}

// DeleteRecord removes one committed record and reverses its odometer
// effect, clamped at zero. The confirm=true query parameter is mandatory.
func (g *GPSController) DeleteRecord(ctx *gin.Context) {
	if ctx.Query("confirm") != "true" {
		utils.Error(ctx, http.StatusBadRequest, 40050, "deletion requires confirm=true")
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid record id")
		return
	}

	if err := g.reconciler.DeleteRecord(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40441, "record not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to delete record")
		return
	}

	utils.InvalidateByPrefix(vehicleCacheKey)
	utils.Success(ctx, nil)
}

// BulkDelete removes many records in one grouped operation. An empty or
// missing ids list wipes the entire history. Admin only.
func (g *GPSController) BulkDelete(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40340, "admin privileges required")
		return
	}
	var req struct {
		IDs     []uint `json:"ids"`
		Confirm bool   `json:"confirm"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40048, "invalid request payload")
		return
	}
	if !req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40050, "deletion requires confirm=true")
		return
	}

	deleted, err := g.reconciler.DeleteRecords(ctx.Request.Context(), utils.UniqueUint(req.IDs))
	if err != nil {
		if errors.Is(err, gps.ErrNoRecords) {
			utils.Error(ctx, http.StatusNotFound, 40441, "no matching records")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to delete records")
		return
	}

	utils.InvalidateByPrefix(vehicleCacheKey)
	utils.Success(ctx, gin.H{"deleted": deleted})
}

// archiveUpload stores the original file bytes and records them in
// stored_files. Archiving is best-effort: a disk failure must not block the
// commit the user already confirmed.
func (g *GPSController) archiveUpload(ctx *gin.Context, session *gps.Session, entries []gps.PreviewEntry) {
	var vehicleID uint
	for _, e := range entries {
		if e.Vehicle != nil {
			vehicleID = e.Vehicle.ID
			break
		}
	}
	relPath := storage.GPSPath(vehicleID, session.Period, session.FileName)
	if err := g.files.Save(relPath, session.Raw()); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("gps archive failed file=%s err=%v", session.FileName, err)
		}
		return
	}
	sf := models.StoredFile{
		Path:       relPath,
		FileName:   session.FileName,
		Size:       int64(len(session.Raw())),
		Kind:       "gps",
		UploadedBy: session.UploadedBy,
	}
	if err := g.db.Create(&sf).Error; err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("stored file record failed file=%s err=%v", session.FileName, err)
	}
}

func respondSessionError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, gps.ErrSessionClosed):
		utils.Error(ctx, http.StatusConflict, 40940, "session is no longer editable")
	case errors.Is(err, gps.ErrEntryIndex):
		utils.Error(ctx, http.StatusBadRequest, 40047, "invalid entry index")
	case errors.Is(err, gps.ErrInvalidKilometers):
		utils.Error(ctx, http.StatusBadRequest, 40052, "kilometers cannot be negative")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50044, "session operation failed")
	}
}

// parsePeriod accepts YYYY-MM and returns the first day of that month. An
// empty value means the current month.
func parsePeriod(s string) (time.Time, error) {
	if s == "" {
		return gps.FirstOfMonth(time.Now()), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
