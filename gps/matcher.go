package gps

import (
	"strings"

	"github.com/yonaskd/fleetms/models"
)

// Match maps a free-text vehicle label from a GPS export to a fleet vehicle.
// A vehicle matches when its plate, VIN or make+model either contains the
// label or is contained in it, case-insensitively. The first vehicle in
// iteration order wins; there is no scoring. The rule is deliberately
// permissive (short plates can false-positive) and relies on the preview
// session for human correction. Returns nil when nothing matches.
func Match(gpsName string, vehicles []models.Vehicle) *models.Vehicle {
	name := strings.ToLower(strings.TrimSpace(gpsName))
	if name == "" {
		return nil
	}
	for i := range vehicles {
		v := &vehicles[i]
		fields := []string{
			v.Plate,
			v.VIN,
			strings.TrimSpace(v.Make + " " + v.Model),
		}
		for _, f := range fields {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" {
				continue
			}
			if strings.Contains(name, f) || strings.Contains(f, name) {
				return v
			}
		}
	}
	return nil
}
