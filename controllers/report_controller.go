package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/report"
	"github.com/yonaskd/fleetms/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportController renders XLSX exports of expenses and GPS mileage.
type ReportController struct {
	db *gorm.DB
}

// NewReportController creates a new ReportController instance.
func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{db: db}
}

// Expenses streams an expense report for a date range as an XLSX download.
func (r *ReportController) Expenses(ctx *gin.Context) {
	from, to, err := dateRange(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40095, "from/to must be in YYYY-MM-DD format")
		return
	}

	var expenses []models.Expense
	err = r.db.Where("expense_date >= ? AND expense_date <= ?", from, to).
		Order("expense_date asc").Find(&expenses).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to load expenses")
		return
	}

	lookups := r.expenseLookups()
	rows := make([]report.ExpenseRow, 0, len(expenses))
	for _, e := range expenses {
		row := report.ExpenseRow{Expense: e, Plate: lookups.plates[e.VehicleID]}
		if e.CategoryID != nil {
			row.Category = lookups.categories[*e.CategoryID]
		}
		if e.VendorID != nil {
			row.Vendor = lookups.vendors[*e.VendorID]
		}
		if e.BranchID != nil {
			row.Branch = lookups.branches[*e.BranchID]
		}
		rows = append(rows, row)
	}

	f, err := report.BuildExpenseReport(rows, from, to)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to build report")
		return
	}

	name := fmt.Sprintf("expenses-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	ctx.Header("Content-Type", xlsxContentType)
	if err := f.Write(ctx.Writer); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("report stream failed name=%s err=%v", name, err)
	}
}

// GPS streams the committed mileage records of one period as an XLSX
// download, unmatched records included.
func (r *ReportController) GPS(ctx *gin.Context) {
	period, err := parsePeriod(ctx.Query("period"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "period must be in YYYY-MM format")
		return
	}

	var records []models.GPSUploadRecord
	if err := r.db.Where("upload_period = ?", period).
		Order("gps_vehicle_name asc").Find(&records).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to load records")
		return
	}

	// Resolve plates in one pass instead of a join so unmatched rows survive
	plates := map[uint]string{}
	var vehicles []models.Vehicle
	if err := r.db.Select("id", "plate").Find(&vehicles).Error; err == nil {
		for _, v := range vehicles {
			plates[v.ID] = v.Plate
		}
	}

	rows := make([]report.GPSRow, 0, len(records))
	for _, rec := range records {
		row := report.GPSRow{Record: rec}
		if rec.VehicleID != nil {
			row.Plate = plates[*rec.VehicleID]
		}
		rows = append(rows, row)
	}

	f, err := report.BuildGPSReport(rows, period)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to build report")
		return
	}

	name := fmt.Sprintf("mileage-%s.xlsx", period.Format("2006-01"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	ctx.Header("Content-Type", xlsxContentType)
	if err := f.Write(ctx.Writer); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("report stream failed name=%s err=%v", name, err)
	}
}

type lookupNames struct {
	plates     map[uint]string
	categories map[uint]string
	vendors    map[uint]string
	branches   map[uint]string
}

// expenseLookups loads the name tables the expense report joins against.
// Lookup failures leave the name blank rather than failing the export.
func (r *ReportController) expenseLookups() lookupNames {
	l := lookupNames{
		plates:     map[uint]string{},
		categories: map[uint]string{},
		vendors:    map[uint]string{},
		branches:   map[uint]string{},
	}
	var vehicles []models.Vehicle
	if err := r.db.Select("id", "plate").Find(&vehicles).Error; err == nil {
		for _, v := range vehicles {
			l.plates[v.ID] = v.Plate
		}
	}
	var categories []models.ExpenseCategory
	if err := r.db.Find(&categories).Error; err == nil {
		for _, c := range categories {
			l.categories[c.ID] = c.Name
		}
	}
	var vendors []models.Vendor
	if err := r.db.Find(&vendors).Error; err == nil {
		for _, v := range vendors {
			l.vendors[v.ID] = v.Name
		}
	}
	var branches []models.Branch
	if err := r.db.Find(&branches).Error; err == nil {
		for _, b := range branches {
			l.branches[b.ID] = b.Name
		}
	}
	return l
}

// dateRange reads from/to query params, defaulting to the current month.
func dateRange(ctx *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, -1)

	var err error
	if s := ctx.Query("from"); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if s := ctx.Query("to"); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}
