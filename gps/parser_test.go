package gps

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func km(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParsePerVehicleTotals(t *testing.T) {
	csv := "vehicle,km\nTruck1,120\nTruck1,30\nVan2,abc\n"
	res, err := Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}

	truck := res.Entries[0]
	if truck.VehicleName != "Truck1" || !truck.Kilometers.Equal(km("150")) {
		t.Errorf("Truck1 = %s %s, want 150", truck.VehicleName, truck.Kilometers)
	}
	if truck.NoData {
		t.Error("Truck1 should not be flagged NoData")
	}

	van := res.Entries[1]
	if van.VehicleName != "Van2" || !van.Kilometers.IsZero() {
		t.Errorf("Van2 = %s %s, want 0", van.VehicleName, van.Kilometers)
	}
	if !van.NoData {
		t.Error("Van2 with only unparsable rows must be flagged NoData")
	}

	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(res.Warnings))
	}
	w := res.Warnings[0]
	if w.Raw != "abc" || w.VehicleName != "Van2" || w.Row != 4 {
		t.Errorf("warning = %+v, want row 4 Van2 abc", w)
	}
	if w.Issue != "could not parse distance value" {
		t.Errorf("warning issue = %q", w.Issue)
	}
}

func TestParseHeaderSynonyms(t *testing.T) {
	for _, header := range []string{"Distance", "Mileage (km)", "Total KM", "odometer", "Kilometre"} {
		csv := "unit," + header + "\nA,200\n"
		res, err := Parse([]byte(csv))
		if err != nil {
			t.Fatalf("header %q: %v", header, err)
		}
		if !res.Entries[0].Kilometers.Equal(km("200")) {
			t.Errorf("header %q: total = %s, want 200", header, res.Entries[0].Kilometers)
		}
	}
}

func TestParseStripsStrayCharacters(t *testing.T) {
	csv := "name,distance\nBus,1 234.5 km\n"
	res, err := Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e := res.Entries[0]
	if !e.Kilometers.Equal(km("1234.5")) {
		t.Errorf("total = %s, want 1234.5", e.Kilometers)
	}
	if !e.Corrected || e.Raw != "1 234.5 km" {
		t.Errorf("corrected = %v raw = %q, want correction flagged with original value", e.Corrected, e.Raw)
	}
}

func TestParseNegativeValueWarned(t *testing.T) {
	csv := "vehicle,km\nT1,-40\nT1,90\n"
	res, err := Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Entries[0].Kilometers.Equal(km("90")) {
		t.Errorf("total = %s, want 90 (negative row skipped)", res.Entries[0].Kilometers)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Issue != "negative distance value" {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func TestParseEmptyFile(t *testing.T) {
	for _, in := range []string{"", "\n\n", "vehicle,km\n", "   \n\t\n"} {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrEmptyFile) {
			t.Errorf("Parse(%q) err = %v, want ErrEmptyFile", in, err)
		}
	}
}

func TestParseZeroTotalIsNoData(t *testing.T) {
	// A distance column was located but nothing usable accumulated.
	for _, in := range []string{
		"vehicle,km\nT1,0\nT2,0\n",
		"vehicle,km\nT1,abc\nT2,--\n",
	} {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrNoDistanceData) {
			t.Errorf("Parse(%q) err = %v, want ErrNoDistanceData", in, err)
		}
	}
}

func TestParseFallbackLastLine(t *testing.T) {
	csv := "foo,bar\nx,50\nsummary,820\n"
	res, err := Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	e := res.Entries[0]
	if e.VehicleName != "" || !e.Kilometers.Equal(km("820")) {
		t.Errorf("fallback entry = %+v, want anonymous 820", e)
	}
}

func TestParseFallbackThreshold(t *testing.T) {
	// Tokens at or below 100 are counts, not distances.
	csv := "foo,bar\nrows,42\ncount,100\n"
	if _, err := Parse([]byte(csv)); !errors.Is(err, ErrNoDistanceData) {
		t.Fatalf("err = %v, want ErrNoDistanceData", err)
	}
}

func TestParseSingleColumnContext(t *testing.T) {
	// No vehicle column: all rows accumulate into one anonymous entry for
	// the caller-supplied vehicle context.
	csv := "date,km\n2024-01-02,100\n2024-01-03,55.5\n"
	res, err := Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	if !res.Entries[0].Kilometers.Equal(km("155.5")) {
		t.Errorf("total = %s, want 155.5", res.Entries[0].Kilometers)
	}
}
