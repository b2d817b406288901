package ingest

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Layout identifies one of the known cedant workbook layouts. The set is
// closed: supporting a new cedant means adding a Layout value and its
// claimsLayoutSpec, not touching the extraction pipeline.
type Layout string

const (
	// LayoutGroupI is the "GRUPO I" product-sheet layout used in all-risk
	// submissions from Colombian cedants.
	LayoutGroupI Layout = "group_i"
	// LayoutCostenaClaims is the La Costeña loss bordereau (SIN_AGOSTO sheet).
	LayoutCostenaClaims Layout = "costena_claims"
	// LayoutConaguaClaims is the CONAGUA loss run (Detail/Resume sheets).
	LayoutConaguaClaims Layout = "conagua_claims"
	// LayoutGeneric is the fallback for unrecognized workbooks.
	LayoutGeneric Layout = "generic"
)

// DetectClaimsLayout classifies a workbook and filename pair into a known
// claims layout, falling back to LayoutGeneric. Detection is priority
// ordered and side-effect free: filename markers are checked before the
// workbook is opened because structural probing is more expensive, and any
// parse failure during probing counts as "does not match", never an error.
// The first matching predicate wins.
func DetectClaimsLayout(data []byte, filename string) Layout {
	name := strings.ToLower(filename)

	// Filename heuristics first.
	if isCostenaName(name) && strings.Contains(name, "siniestro") {
		return LayoutCostenaClaims
	}
	if strings.Contains(name, "conagua") && strings.Contains(name, "loss") {
		return LayoutConaguaClaims
	}

	// Structural probing: open once, check sheet inventories.
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return LayoutGeneric
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, s := range f.GetSheetList() {
		sheets[s] = true
	}

	switch {
	case sheets["GRUPO I"]:
		return LayoutGroupI
	case sheets["SIN_AGOSTO"]:
		return LayoutCostenaClaims
	case sheets["Detail"] && sheets["Resume"]:
		return LayoutConaguaClaims
	}

	return LayoutGeneric
}

func isCostenaName(lowerName string) bool {
	return strings.Contains(lowerName, "costeña") || strings.Contains(lowerName, "costena")
}
