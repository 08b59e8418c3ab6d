package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/config"
	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/scan"
	"github.com/yonaskd/fleetms/storage"
	"github.com/yonaskd/fleetms/utils"
)

// ExpenseController manages vehicle expenses and the receipt scan flow.
type ExpenseController struct {
	db      *gorm.DB
	files   *storage.Store
	scanner *scan.Client
}

// NewExpenseController creates a new ExpenseController instance.
func NewExpenseController(db *gorm.DB, files *storage.Store, scanner *scan.Client) *ExpenseController {
	return &ExpenseController{db: db, files: files, scanner: scanner}
}

type expenseRequest struct {
	VehicleID   uint    `json:"vehicle_id" binding:"required"`
	CategoryID  *uint   `json:"category_id"`
	VendorID    *uint   `json:"vendor_id"`
	BranchID    *uint   `json:"branch_id"`
	Amount      string  `json:"amount" binding:"required"`
	Liters      *string `json:"liters"`
	ExpenseDate string  `json:"expense_date"` // YYYY-MM-DD
	Notes       string  `json:"notes"`
	ReceiptID   *uint   `json:"receipt_id"`
	Scanned     bool    `json:"scanned"`
}

func (r *expenseRequest) toModel(userID uint) (*models.Expense, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || amount.IsNegative() {
		return nil, errors.New("invalid amount")
	}
	var liters *decimal.Decimal
	if r.Liters != nil && *r.Liters != "" {
		l, err := decimal.NewFromString(*r.Liters)
		if err != nil || l.IsNegative() {
			return nil, errors.New("invalid liters")
		}
		liters = &l
	}
	date := time.Now()
	if r.ExpenseDate != "" {
		date, err = time.Parse("2006-01-02", r.ExpenseDate)
		if err != nil {
			return nil, errors.New("invalid expense date")
		}
	}
	return &models.Expense{
		VehicleID:   r.VehicleID,
		CategoryID:  r.CategoryID,
		VendorID:    r.VendorID,
		BranchID:    r.BranchID,
		Amount:      amount,
		Liters:      liters,
		ExpenseDate: date,
		Notes:       utils.Sanitize(r.Notes),
		ReceiptID:   r.ReceiptID,
		Scanned:     r.Scanned,
		CreatedBy:   userID,
	}, nil
}

// Create books a new expense against a vehicle.
func (e *ExpenseController) Create(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40150, "unauthorized")
		return
	}
	var req expenseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	expense, err := req.toModel(userID)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, err.Error())
		return
	}

	var count int64
	if err := e.db.Model(&models.Vehicle{}).Where("id = ?", req.VehicleID).Count(&count).Error; err != nil || count == 0 {
		utils.Error(ctx, http.StatusNotFound, 40430, "vehicle not found")
		return
	}
	if err := e.db.Create(expense).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to create expense")
		return
	}
	utils.Success(ctx, expense)
}

// List returns expenses with optional vehicle/category/date filters.
func (e *ExpenseController) List(ctx *gin.Context) {
	page, pageSize := pagination(ctx)

	q := e.db.Model(&models.Expense{})
	if vid := ctx.Query("vehicle_id"); vid != "" {
		q = q.Where("vehicle_id = ?", vid)
	}
	if cid := ctx.Query("category_id"); cid != "" {
		q = q.Where("category_id = ?", cid)
	}
	if from := ctx.Query("from"); from != "" {
		q = q.Where("expense_date >= ?", from)
	}
	if to := ctx.Query("to"); to != "" {
		q = q.Where("expense_date <= ?", to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to count expenses")
		return
	}
	var expenses []models.Expense
	if err := q.Order("expense_date desc, id desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&expenses).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list expenses")
		return
	}
	utils.Success(ctx, gin.H{"total": total, "page": page, "page_size": pageSize, "expenses": expenses})
}

// Get returns one expense by ID.
func (e *ExpenseController) Get(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid expense id")
		return
	}
	var expense models.Expense
	if err := e.db.First(&expense, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40450, "expense not found")
		return
	}
	utils.Success(ctx, expense)
}

// Update modifies an expense.
func (e *ExpenseController) Update(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid expense id")
		return
	}
	var existing models.Expense
	if err := e.db.First(&existing, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40450, "expense not found")
		return
	}

	var req expenseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	updated, err := req.toModel(existing.CreatedBy)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, err.Error())
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := e.db.Save(updated).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to update expense")
		return
	}
	utils.Success(ctx, updated)
}

// Delete soft-deletes an expense.
func (e *ExpenseController) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid expense id")
		return
	}
	if err := e.db.Delete(&models.Expense{}, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to delete expense")
		return
	}
	utils.Success(ctx, nil)
}

// ScanReceipt stores a receipt image and, when the scan service is
// configured, returns extracted fields the client can prefill an expense
// form with. Scan failures are reported but never lose the stored image.
func (e *ExpenseController) ScanReceipt(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40150, "unauthorized")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40063, "file is required")
		return
	}
	cfg := config.Get()
	if fileHeader.Size > int64(cfg.MaxUploadSizeMB)<<20 {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 40064, "file too large")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40065, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40065, "failed to read file")
		return
	}

	fileName := filepath.Base(fileHeader.Filename)
	relPath := storage.ReceiptPath(userID, fileName)
	if err := e.files.Save(relPath, data); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to store receipt")
		return
	}
	sf := models.StoredFile{
		Path:        relPath,
		FileName:    fileName,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Kind:        "receipt",
		UploadedBy:  userID,
	}
	if err := e.db.Create(&sf).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to record receipt")
		return
	}

	result, err := e.scanner.Scan(ctx.Request.Context(), data, fileName)
	if err != nil {
		if errors.Is(err, scan.ErrNotConfigured) {
			utils.Success(ctx, gin.H{"receipt_id": sf.ID, "scanned": false})
			return
		}
		// Image is safe; surface the scan failure so the user types it in.
		utils.Respond(ctx, http.StatusOK, 0, "receipt stored, scan unavailable",
			gin.H{"receipt_id": sf.ID, "scanned": false, "scan_error": err.Error()})
		return
	}

	utils.Success(ctx, gin.H{"receipt_id": sf.ID, "scanned": true, "result": result})
}

// Summary aggregates expenses by category for one month.
func (e *ExpenseController) Summary(ctx *gin.Context) {
	period, err := parsePeriod(ctx.Query("period"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "period must be in YYYY-MM format")
		return
	}
	end := period.AddDate(0, 1, 0)

	type row struct {
		CategoryID *uint           `json:"category_id"`
		Total      decimal.Decimal `json:"total"`
		Count      int64           `json:"count"`
	}
	var rows []row
	err = e.db.Model(&models.Expense{}).
		Select("category_id, SUM(amount) AS total, COUNT(*) AS count").
		Where("expense_date >= ? AND expense_date < ?", period, end).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to summarize expenses")
		return
	}
	utils.Success(ctx, gin.H{"period": period.Format("2006-01"), "categories": rows})
}
