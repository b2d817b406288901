package ingest

import (
	"strconv"
	"strings"
	"time"
)

// normalizeHeader canonicalizes a source column heading: trim, lowercase,
// spaces to underscores. Cedant sheets are inconsistent about trailing
// blanks and casing, so every header comparison goes through this.
func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// headerIndex maps normalized headings to their column position. Later
// duplicates win so a repeated heading resolves to the rightmost column.
func headerIndex(row []string) map[string]int {
	idx := make(map[string]int, len(row))
	for i, h := range row {
		if key := normalizeHeader(h); key != "" {
			idx[key] = i
		}
	}
	return idx
}

// cellAt returns the trimmed cell at column i, tolerating short rows.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseAmount converts a cell into a monetary amount. Thousand separators
// and currency symbols are stripped; anything unparseable is treated as
// zero, matching the "nullable amounts become 0" canonical rule.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	replacer := strings.NewReplacer(",", "", "$", "", " ", "")
	v, err := strconv.ParseFloat(replacer.Replace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// claimDateFormats covers the date renderings seen across cedant sheets.
var claimDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"01-02-06",
	"2-Jan-06",
	"Jan 2, 2006",
}

// excelEpoch is the zero day of the 1900 date system serial numbers.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseClaimDate converts a cell into an occurrence date. Both formatted
// strings and raw Excel serial numbers appear in the wild; unparseable
// cells yield nil rather than an error.
func parseClaimDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, format := range claimDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}

	// Excel serial number fallback.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		t := excelEpoch.AddDate(0, 0, int(serial))
		return &t
	}

	return nil
}

// rowEmpty reports whether every cell in the row is blank.
func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
