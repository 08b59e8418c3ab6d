package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yonaskd/fleetms/models"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestBuildExpenseReportTotals(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	rows := []ExpenseRow{
		{Expense: models.Expense{Amount: dec("100.50"), ExpenseDate: from}, Plate: "AA-1234", Category: "Fuel"},
		{Expense: models.Expense{Amount: dec("49.50"), ExpenseDate: to}, Plate: "BB-5678", Category: "Maintenance"},
	}

	f, err := BuildExpenseReport(rows, from, to)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.GetCellValue("Expenses", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "AA-1234" {
		t.Errorf("B2 = %q, want AA-1234", got)
	}
	total, _ := f.GetCellValue("Expenses", "F4")
	if total != "150.00" {
		t.Errorf("total = %q, want 150.00", total)
	}
}

func TestBuildGPSReportFlagsUnmatched(t *testing.T) {
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	vid := uint(7)
	rows := []GPSRow{
		{Record: models.GPSUploadRecord{VehicleID: &vid, GPSVehicleName: "Truck1", Kilometers: dec("120.00"), UploadPeriod: period}, Plate: "AA-1234"},
		{Record: models.GPSUploadRecord{GPSVehicleName: "Mystery", Kilometers: dec("30.00"), UploadPeriod: period}},
	}

	f, err := BuildGPSReport(rows, period)
	if err != nil {
		t.Fatal(err)
	}

	matched, _ := f.GetCellValue("Mileage", "F2")
	unmatched, _ := f.GetCellValue("Mileage", "F3")
	if matched != "yes" || unmatched != "no" {
		t.Errorf("matched flags = %q/%q, want yes/no", matched, unmatched)
	}
	total, _ := f.GetCellValue("Mileage", "D4")
	if total != "150.00" {
		t.Errorf("total = %q, want 150.00", total)
	}
	note, _ := f.GetCellValue("Mileage", "F4")
	if note != "1 unmatched" {
		t.Errorf("footer = %q, want 1 unmatched", note)
	}
}
