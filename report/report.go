package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/yonaskd/fleetms/models"
)

// ExpenseRow is one line of the expense report, joined with its lookup names.
type ExpenseRow struct {
	Expense  models.Expense
	Plate    string
	Category string
	Vendor   string
	Branch   string
}

// BuildExpenseReport renders expense rows into an XLSX workbook with a
// totals line at the bottom.
func BuildExpenseReport(rows []ExpenseRow, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Expenses"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Vehicle", "Category", "Vendor", "Branch", "Amount", "Liters", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	total := decimal.Zero
	for i, r := range rows {
		rowNum := i + 2
		liters := ""
		if r.Expense.Liters != nil {
			liters = r.Expense.Liters.StringFixed(2)
		}
		vals := []interface{}{
			r.Expense.ExpenseDate.Format("2006-01-02"),
			r.Plate,
			r.Category,
			r.Vendor,
			r.Branch,
			r.Expense.Amount.StringFixed(2),
			liters,
			r.Expense.Notes,
		}
		for c, v := range vals {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		total = total.Add(r.Expense.Amount)
	}

	footer := len(rows) + 2
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", footer), total.StringFixed(2))
	_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", footer),
		fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02")))

	return f, nil
}

// GPSRow is one line of the mileage report. Plate is empty for records that
// never matched a fleet vehicle.
type GPSRow struct {
	Record models.GPSUploadRecord
	Plate  string
}

// BuildGPSReport renders committed GPS mileage records into an XLSX workbook.
// Unmatched records are kept, flagged in their own column, so period totals
// account for every uploaded row.
func BuildGPSReport(rows []GPSRow, period time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Mileage"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Period", "GPS Name", "Vehicle", "Kilometers", "Source File", "Matched"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	total := decimal.Zero
	unmatched := 0
	for i, r := range rows {
		rowNum := i + 2
		matched := "yes"
		if r.Record.VehicleID == nil {
			matched = "no"
			unmatched++
		}
		vals := []interface{}{
			r.Record.UploadPeriod.Format("2006-01"),
			r.Record.GPSVehicleName,
			r.Plate,
			r.Record.Kilometers.StringFixed(2),
			r.Record.FileName,
			matched,
		}
		for c, v := range vals {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		total = total.Add(r.Record.Kilometers)
	}

	footer := len(rows) + 2
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer), period.Format("2006-01"))
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", footer), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", footer), total.StringFixed(2))
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", footer), fmt.Sprintf("%d unmatched", unmatched))

	return f, nil
}
