package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"treatylens/pkg/contracts/domain"
)

// claimsColumnMap names the source columns (normalized form) that feed each
// canonical claim field. Empty entries mean the layout has no such column
// and the field is derived instead.
type claimsColumnMap struct {
	reference string
	date      string
	cause     string
	paid      string
	reserved  []string
	incurred  string
	catFlag   string
}

// claimsLayoutSpec carries everything the shared extraction loop needs for
// one known layout: target sheet, header offset, column mapping and the
// row-validity key. Adding a cedant layout is adding an entry here.
type claimsLayoutSpec struct {
	sheet     string
	headerRow int
	keyColumn string
	// filterColumn/filterContains keep only product rows matching a marker,
	// applied only when the column exists in the sheet.
	filterColumn   string
	filterContains string
	columns        claimsColumnMap
}

var claimsLayouts = map[Layout]claimsLayoutSpec{
	LayoutGroupI: {
		sheet:          "GRUPO I",
		headerRow:      1,
		keyColumn:      "fec._sini",
		filterColumn:   "nom._procucto",
		filterContains: "todo riesgo",
		columns: claimsColumnMap{
			reference: "num._poliza",
			date:      "fec._sini",
			cause:     "nom._exp.",
			paid:      "liquidado",
			reserved:  []string{"rva._actual"},
			incurred:  "total_incurrido",
		},
	},
	LayoutCostenaClaims: {
		sheet:     "SIN_AGOSTO",
		headerRow: 8,
		keyColumn: "siniestro",
		columns: claimsColumnMap{
			reference: "siniestro",
			date:      "fechasin",
			cause:     "descripción",
			paid:      "sinpagado",
			reserved:  []string{"reserva_indemniza", "reserva_gastos"},
			incurred:  "perdida",
		},
	},
	LayoutConaguaClaims: {
		sheet:     "Detail",
		headerRow: 1,
		keyColumn: "fecha_ocurrencia",
		columns: claimsColumnMap{
			date:     "fecha_ocurrencia",
			cause:    "causa",
			paid:     "pérdida_pagada_neta",
			reserved: []string{"reserva_bruta"},
			catFlag:  "cat_/_no_cat",
		},
	},
}

// ExtractClaims converts a raw claims workbook into canonical records.
// The layout is detected first; recognized layouts run through their spec,
// everything else goes through the generic extractor. Workbooks that fail
// to parse as spreadsheets are retried once as delimited text.
func ExtractClaims(data []byte, filename string) ([]domain.ClaimRecord, Layout, error) {
	layout := DetectClaimsLayout(data, filename)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		rows, csvErr := ReadDelimited(data)
		if csvErr != nil {
			return nil, layout, fmt.Errorf("file is neither a workbook nor delimited text: %w", err)
		}
		claims, genErr := claimsFromGenericRows(rows)
		return claims, LayoutGeneric, genErr
	}
	defer f.Close()

	if layout == LayoutGeneric {
		claims, genErr := extractGenericClaims(f)
		return claims, layout, genErr
	}

	spec := claimsLayouts[layout]
	claims, err := extractWithSpec(f, spec)
	return claims, layout, err
}

// extractWithSpec runs the shared extraction loop for a known layout.
func extractWithSpec(f *excelize.File, spec claimsLayoutSpec) ([]domain.ClaimRecord, error) {
	rows, err := f.GetRows(spec.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", spec.sheet, err)
	}
	if len(rows) <= spec.headerRow {
		return nil, fmt.Errorf("sheet %q has no header row at offset %d", spec.sheet, spec.headerRow)
	}

	idx := headerIndex(rows[spec.headerRow])
	keyCol, hasKey := idx[spec.keyColumn]
	if !hasKey {
		return nil, fmt.Errorf("sheet %q is missing key column %q", spec.sheet, spec.keyColumn)
	}

	filterCol, hasFilter := -1, false
	if spec.filterColumn != "" {
		filterCol, hasFilter = idx[spec.filterColumn]
	}

	var claims []domain.ClaimRecord
	for i := spec.headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if rowEmpty(row) || cellAt(row, keyCol) == "" {
			continue
		}
		if hasFilter && !strings.Contains(strings.ToLower(cellAt(row, filterCol)), spec.filterContains) {
			continue
		}
		claims = append(claims, buildClaim(spec.columns, idx, row, len(claims)))
	}
	return claims, nil
}

// buildClaim maps one source row into a canonical claim, applying the
// derivation rules: a missing incurred column derives paid+reserved, a
// missing reserved column derives max(incurred-paid, 0).
func buildClaim(cols claimsColumnMap, idx map[string]int, row []string, seq int) domain.ClaimRecord {
	claim := domain.ClaimRecord{Source: domain.ClaimSourceFile}

	if col, ok := idx[cols.reference]; ok {
		claim.Reference = cellAt(row, col)
	}
	if col, ok := idx[cols.date]; ok {
		claim.OccurredAt = parseClaimDate(cellAt(row, col))
	}
	if col, ok := idx[cols.cause]; ok {
		claim.Cause = cellAt(row, col)
	}
	if col, ok := idx[cols.paid]; ok {
		claim.Paid = parseAmount(cellAt(row, col))
	}

	reservedPresent := false
	for _, name := range cols.reserved {
		if col, ok := idx[name]; ok {
			claim.Reserved += parseAmount(cellAt(row, col))
			reservedPresent = true
		}
	}

	incurredPresent := false
	if col, ok := idx[cols.incurred]; ok {
		claim.Incurred = parseAmount(cellAt(row, col))
		incurredPresent = true
	}

	switch {
	case !incurredPresent:
		claim.Incurred = claim.Paid + claim.Reserved
	case !reservedPresent:
		if derived := claim.Incurred - claim.Paid; derived > 0 {
			claim.Reserved = derived
		}
	}

	if col, ok := idx[cols.catFlag]; ok {
		if flag := parseCatFlag(cellAt(row, col)); flag != nil {
			claim.Catastrophic = flag
		}
	}

	if claim.OccurredAt != nil {
		claim.Year = claim.OccurredAt.Year()
	}
	if claim.Reference == "" {
		claim.Reference = synthesizeReference(claim, seq)
	}
	return claim
}

// parseCatFlag interprets a catastrophe marker cell; nil means unknown.
func parseCatFlag(s string) *bool {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return nil
	}
	flag := !strings.HasPrefix(v, "no") && (strings.Contains(v, "cat") || v == "si" || v == "yes" || v == "y" || v == "1")
	return &flag
}

// synthesizeReference builds a deterministic claim reference for rows that
// carry none, from the occurrence date and the row's position.
func synthesizeReference(claim domain.ClaimRecord, seq int) string {
	datePart := "XXXXXXXX"
	if claim.OccurredAt != nil {
		datePart = claim.OccurredAt.Format("20060102")
	}
	return fmt.Sprintf("CLM-%s-%04d", datePart, seq+1)
}
