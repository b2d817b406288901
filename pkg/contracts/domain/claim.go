package domain

import (
	"time"
)

// ClaimRecord represents a single historical loss event in canonical form.
// Records are produced by the ingest extractors or loaded from the claims
// history repository; amounts are in the cedant's local currency.
type ClaimRecord struct {
	Reference    string     `json:"reference" db:"claim_reference"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty" db:"occurrence_date"`
	Year         int        `json:"year" db:"year"`
	Paid         float64    `json:"paid" db:"paid"`
	Reserved     float64    `json:"reserved" db:"reserved"`
	Incurred     float64    `json:"incurred" db:"incurred"`
	Cause        string     `json:"cause,omitempty" db:"cause"`
	Catastrophic *bool      `json:"catastrophic,omitempty" db:"catastrophic"`
	Source       ClaimSource `json:"source"`
}

// ClaimSource identifies where a canonical claim came from.
type ClaimSource string

const (
	// ClaimSourceFile marks claims extracted from an uploaded workbook.
	ClaimSourceFile ClaimSource = "file"
	// ClaimSourceHistory marks claims loaded from the history repository.
	ClaimSourceHistory ClaimSource = "history"
)

// Informative reports whether the claim carries a usable incurred amount.
// Claims with incurred <= 0 are excluded from analytics.
func (c ClaimRecord) Informative() bool {
	return c.Incurred > 0
}

// Unliquidated reports whether nothing has been paid on the claim while a
// reserve is still outstanding. Partially paid claims are not unliquidated
// even when they carry a remaining reserve.
func (c ClaimRecord) Unliquidated() bool {
	return c.Paid == 0 && c.Reserved > 0
}

// OccurrenceYear returns the year of occurrence, deriving it from the
// occurrence date when the Year field was not populated by the source.
func (c ClaimRecord) OccurrenceYear() int {
	if c.Year != 0 {
		return c.Year
	}
	if c.OccurredAt != nil {
		return c.OccurredAt.Year()
	}
	return 0
}
