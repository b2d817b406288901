package ingest

import (
	"context"
	"log/slog"
	"sort"

	"treatylens/internal/infrastructure"
	"treatylens/pkg/contracts/domain"
)

// File is one uploaded workbook: original filename plus raw bytes.
type File struct {
	Name string
	Data []byte
}

// ConsolidateResult is the outcome of merging per-file extractions with
// repository history into one canonical claims table.
type ConsolidateResult struct {
	Claims      []domain.ClaimRecord
	FailedFiles []string
	Layouts     map[string]Layout
}

// Consolidator merges claims from uploaded files and external history into
// a single filtered, sorted table.
type Consolidator struct {
	logger *slog.Logger
}

// NewConsolidator creates a claims consolidator.
func NewConsolidator(logger *slog.Logger) *Consolidator {
	return &Consolidator{logger: logger}
}

// Consolidate extracts every file, appends external history after the
// file-derived rows, drops non-informative records (incurred <= 0),
// back-fills missing years and sorts by occurrence date descending.
//
// A file failing every extraction attempt is skipped with a warning, never
// an error: if nothing extracts, history alone is used, and an empty table
// is the valid "new client" outcome when there is no history either.
func (c *Consolidator) Consolidate(ctx context.Context, files []File, history []domain.ClaimRecord) ConsolidateResult {
	result := ConsolidateResult{Layouts: make(map[string]Layout, len(files))}

	for _, file := range files {
		claims, layout, err := ExtractClaims(file.Data, file.Name)
		if err != nil {
			c.logger.WarnContext(ctx, "claims file skipped: extraction failed",
				"file", file.Name,
				"layout", string(layout),
				"error", err,
			)
			infrastructure.ExtractionFailures.WithLabelValues(string(layout)).Inc()
			result.FailedFiles = append(result.FailedFiles, file.Name)
			continue
		}
		result.Layouts[file.Name] = layout
		c.logger.InfoContext(ctx, "claims file extracted",
			"file", file.Name,
			"layout", string(layout),
			"records", len(claims),
		)
		result.Claims = append(result.Claims, claims...)
	}

	// History rows come after file-derived rows.
	result.Claims = append(result.Claims, history...)

	result.Claims = finalizeClaims(result.Claims)
	return result
}

// finalizeClaims applies the canonical table invariants: informative rows
// only, derived year present, newest losses first.
func finalizeClaims(claims []domain.ClaimRecord) []domain.ClaimRecord {
	kept := claims[:0]
	for _, claim := range claims {
		if !claim.Informative() {
			continue
		}
		if claim.Year == 0 && claim.OccurredAt != nil {
			claim.Year = claim.OccurredAt.Year()
		}
		kept = append(kept, claim)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].OccurredAt, kept[j].OccurredAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return kept
}
