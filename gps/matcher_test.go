package gps

import (
	"testing"

	"github.com/yonaskd/fleetms/models"
)

func TestMatchBidirectionalContainment(t *testing.T) {
	fleet := []models.Vehicle{
		{ID: 1, Plate: "AA-1234", VIN: "1HGCM82633A004352", Make: "Isuzu", Model: "NPR"},
		{ID: 2, Plate: "BB-9876", Make: "Toyota", Model: "Hilux"},
	}

	cases := []struct {
		name    string
		gpsName string
		want    uint // 0 means no match
	}{
		{"plate inside gps name", "Truck AA-1234 north route", 1},
		{"gps name inside plate", "BB-98", 2},
		{"case insensitive", "aa-1234", 1},
		{"vin match", "unit 1HGCM82633A004352", 1},
		{"make model match", "Toyota Hilux #2", 2},
		{"no match", "Freightliner 77", 0},
		{"empty name", "   ", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Match(tc.gpsName, fleet)
			switch {
			case tc.want == 0 && got != nil:
				t.Errorf("Match(%q) = vehicle %d, want nil", tc.gpsName, got.ID)
			case tc.want != 0 && got == nil:
				t.Errorf("Match(%q) = nil, want vehicle %d", tc.gpsName, tc.want)
			case tc.want != 0 && got.ID != tc.want:
				t.Errorf("Match(%q) = vehicle %d, want %d", tc.gpsName, got.ID, tc.want)
			}
		})
	}
}

func TestMatchFirstWins(t *testing.T) {
	// Both plates are substrings of the label; iteration order decides.
	fleet := []models.Vehicle{
		{ID: 1, Plate: "12"},
		{ID: 2, Plate: "123"},
	}
	got := Match("unit 123", fleet)
	if got == nil || got.ID != 1 {
		t.Fatalf("Match = %v, want first vehicle", got)
	}
}

func TestMatchSkipsEmptyFields(t *testing.T) {
	// An empty plate must not match everything by trivial containment.
	fleet := []models.Vehicle{{ID: 1, Plate: ""}}
	if got := Match("anything", fleet); got != nil {
		t.Fatalf("Match against empty-field vehicle = %v, want nil", got)
	}
}

func TestMatchIsPure(t *testing.T) {
	fleet := []models.Vehicle{{ID: 1, Plate: "CC-5"}}
	a := Match("CC-5", fleet)
	b := Match("CC-5", fleet)
	if a == nil || b == nil || a.ID != b.ID {
		t.Fatal("repeated calls must be deterministic")
	}
	if fleet[0].Plate != "CC-5" {
		t.Fatal("Match must not mutate the candidate list")
	}
}
