package gps

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyFile means the file had no header plus at least one data row.
	ErrEmptyFile = errors.New("gps: file is empty or has no data rows")
	// ErrNoDistanceData means no usable kilometer total could be extracted.
	// A located distance column whose values sum to zero counts as no data.
	ErrNoDistanceData = errors.New("gps: no distance data found in file")
)

// distanceKeywords identify the distance column by substring match against
// lower-cased header tokens. Order matters only across headers, not keywords:
// the first header containing any keyword wins.
var distanceKeywords = []string{"km", "kilometer", "kilometre", "distance", "mileage", "odometer", "total"}

// vehicleKeywords identify the free-text vehicle label column.
var vehicleKeywords = []string{"vehicle", "plate", "name", "asset", "unit", "reg", "object"}

// fallbackThreshold separates plausible distance totals from small integers
// like row counts when no distance column exists.
var fallbackThreshold = decimal.NewFromInt(100)

// ParsedEntry is the per-vehicle aggregate extracted from one file. When the
// file has no vehicle column, a single entry with an empty VehicleName is
// produced and the caller supplies the vehicle context.
//
// NoData distinguishes "every row for this vehicle failed to parse" from a
// confirmed zero-kilometer total (a vehicle that simply did not move).
type ParsedEntry struct {
	VehicleName string          `json:"vehicle_name"`
	Kilometers  decimal.Decimal `json:"kilometers"`
	Row         int             `json:"row"` // first contributing line, 1-based
	Corrected   bool            `json:"corrected"`
	Raw         string          `json:"raw,omitempty"` // original cell when a correction occurred
	NoData      bool            `json:"no_data"`
}

// ParseWarning reports a non-fatal per-row issue. Warnings are shown in the
// preview step but never block commit.
type ParseWarning struct {
	Row         int    `json:"row"`
	VehicleName string `json:"vehicle_name"`
	Raw         string `json:"raw"`
	Issue       string `json:"issue"`
}

// ParseResult is the parser output for one delimited text export.
type ParseResult struct {
	Entries  []ParsedEntry  `json:"entries"`
	Warnings []ParseWarning `json:"warnings"`
}

// Parse decodes a comma-delimited GPS export into per-vehicle kilometer
// totals. It locates the distance column heuristically, tolerates currency
// junk and separator noise inside cells, skips (and warns about) rows that
// fail to parse, and falls back to scanning the last line for a large
// numeric token when no distance column exists.
func Parse(data []byte) (*ParseResult, error) {
	lines := nonBlankLines(string(data))
	if len(lines) < 2 {
		return nil, ErrEmptyFile
	}

	header := splitCells(lines[0].text)
	for i := range header {
		header[i] = strings.ToLower(header[i])
	}

	distCol := findColumn(header, distanceKeywords)
	if distCol < 0 {
		return parseFallback(lines)
	}
	vehCol := findColumn(header, vehicleKeywords)
	if vehCol == distCol {
		vehCol = -1
	}

	res := &ParseResult{}
	index := map[string]int{} // vehicle name -> position in res.Entries
	total := decimal.Zero

	for _, ln := range lines[1:] {
		cells := splitCells(ln.text)
		name := ""
		if vehCol >= 0 && vehCol < len(cells) {
			name = strings.TrimSpace(cells[vehCol])
		}
		raw := ""
		if distCol < len(cells) {
			raw = strings.TrimSpace(cells[distCol])
		}

		pos, seen := index[name]
		if !seen {
			res.Entries = append(res.Entries, ParsedEntry{
				VehicleName: name,
				Kilometers:  decimal.Zero,
				Row:         ln.number,
				NoData:      true,
			})
			pos = len(res.Entries) - 1
			index[name] = pos
		}

		clean := stripNonNumeric(raw)
		km, err := decimal.NewFromString(clean)
		if clean == "" || err != nil {
			res.Warnings = append(res.Warnings, ParseWarning{
				Row:         ln.number,
				VehicleName: name,
				Raw:         raw,
				Issue:       "could not parse distance value",
			})
			continue
		}
		if km.IsNegative() {
			res.Warnings = append(res.Warnings, ParseWarning{
				Row:         ln.number,
				VehicleName: name,
				Raw:         raw,
				Issue:       "negative distance value",
			})
			continue
		}

		e := &res.Entries[pos]
		e.Kilometers = e.Kilometers.Add(km)
		e.NoData = false
		if clean != raw && !e.Corrected {
			e.Corrected = true
			e.Raw = raw
		}
		total = total.Add(km)
	}

	// A column was located but nothing usable accumulated: treat as no data.
	if total.IsZero() {
		return nil, ErrNoDistanceData
	}
	return res, nil
}

// parseFallback scans the last non-blank line for the first numeric token
// greater than 100 and uses it as a single-vehicle total.
func parseFallback(lines []line) (*ParseResult, error) {
	last := lines[len(lines)-1]
	for _, cell := range splitCells(last.text) {
		for _, tok := range strings.Fields(cell) {
			clean := stripNonNumeric(tok)
			if clean == "" {
				continue
			}
			v, err := decimal.NewFromString(clean)
			if err != nil {
				continue
			}
			if v.GreaterThan(fallbackThreshold) {
				e := ParsedEntry{Kilometers: v, Row: last.number}
				if clean != tok {
					e.Corrected = true
					e.Raw = tok
				}
				return &ParseResult{Entries: []ParsedEntry{e}}, nil
			}
		}
	}
	return nil, ErrNoDistanceData
}

type line struct {
	number int // 1-based position in the original file
	text   string
}

func nonBlankLines(s string) []line {
	var out []line
	for i, raw := range strings.Split(s, "\n") {
		t := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if t == "" {
			continue
		}
		out = append(out, line{number: i + 1, text: t})
	}
	return out
}

func splitCells(s string) []string {
	cells := strings.Split(s, ",")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// findColumn returns the index of the first header containing any keyword.
func findColumn(header []string, keywords []string) int {
	for i, h := range header {
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return -1
}

// stripNonNumeric drops everything except digits, '.' and '-', which absorbs
// thousands separators, unit suffixes and currency-like stray characters.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
