package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"treatylens/pkg/contracts/domain"
)

// Canonical column synonyms for the generic extractor, matched by substring
// against normalized headers. Spanish first: that is what most cedant
// bordereaux actually carry.
var (
	genericDateColumns = []string{
		"fecha_siniestro", "fecha_ocurrencia", "fecha", "loss_date",
		"date_of_loss", "occurrence_date", "date",
	}
	genericIncurredColumns = []string{
		"monto_incurrido", "total_incurrido", "incurrido", "total_incurred", "incurred",
	}
	genericPaidColumns = []string{
		"monto_pagado", "pagado", "liquidado", "total_paid", "paid",
	}
	genericReservedColumns = []string{
		"monto_reservado", "reservado", "reserva", "reserved", "reserve",
	}
	genericCauseColumns = []string{
		"causa_siniestro", "causa", "cause", "descripcion", "descripción", "description",
	}
	genericReferenceColumns = []string{
		"numero_siniestro", "siniestro", "claim_reference", "claim_number",
		"num_poliza", "reference", "claim_id",
	}
)

// extractGenericClaims handles unrecognized workbooks: the first sheet is
// read with its first row as header, headings are normalized and canonical
// columns are located by synonym. Callers must tolerate sparse results.
func extractGenericClaims(f *excelize.File) ([]domain.ClaimRecord, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return claimsFromGenericRows(rows)
}

// claimsFromGenericRows maps loosely-shaped tabular data into canonical
// claims. A date column plus at least one amount column is the minimum for
// the table to be usable; the missing amounts are derived per the usual
// rules.
func claimsFromGenericRows(rows [][]string) ([]domain.ClaimRecord, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("table has no data rows")
	}

	idx := headerIndex(rows[0])
	dateCol := findColumn(idx, genericDateColumns)
	incurredCol := findColumn(idx, genericIncurredColumns)
	paidCol := findColumn(idx, genericPaidColumns)
	reservedCol := findColumn(idx, genericReservedColumns)
	causeCol := findColumn(idx, genericCauseColumns)
	referenceCol := findColumn(idx, genericReferenceColumns)

	if dateCol < 0 {
		return nil, fmt.Errorf("no occurrence date column recognized")
	}
	if incurredCol < 0 && paidCol < 0 && reservedCol < 0 {
		return nil, fmt.Errorf("no amount columns recognized")
	}

	var claims []domain.ClaimRecord
	for _, row := range rows[1:] {
		if rowEmpty(row) || cellAt(row, dateCol) == "" {
			continue
		}

		claim := domain.ClaimRecord{Source: domain.ClaimSourceFile}
		claim.OccurredAt = parseClaimDate(cellAt(row, dateCol))
		if claim.OccurredAt != nil {
			claim.Year = claim.OccurredAt.Year()
		}
		if causeCol >= 0 {
			claim.Cause = cellAt(row, causeCol)
		}
		if referenceCol >= 0 {
			claim.Reference = cellAt(row, referenceCol)
		}
		if paidCol >= 0 {
			claim.Paid = parseAmount(cellAt(row, paidCol))
		}
		if reservedCol >= 0 {
			claim.Reserved = parseAmount(cellAt(row, reservedCol))
		}
		switch {
		case incurredCol >= 0:
			claim.Incurred = parseAmount(cellAt(row, incurredCol))
			if reservedCol < 0 {
				if derived := claim.Incurred - claim.Paid; derived > 0 {
					claim.Reserved = derived
				}
			}
		default:
			claim.Incurred = claim.Paid + claim.Reserved
		}
		if claim.Reference == "" {
			claim.Reference = synthesizeReference(claim, len(claims))
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

// findColumn locates the first synonym that matches a normalized heading;
// exact matches are preferred, then containment, scanning columns left to
// right so the result is deterministic.
func findColumn(idx map[string]int, synonyms []string) int {
	for _, syn := range synonyms {
		if col, ok := idx[syn]; ok {
			return col
		}
	}
	for _, syn := range synonyms {
		best := -1
		for key, col := range idx {
			if strings.Contains(key, syn) && (best == -1 || col < best) {
				best = col
			}
		}
		if best >= 0 {
			return best
		}
	}
	return -1
}
