package exposure

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"treatylens/internal/ingest"
	"treatylens/pkg/contracts/domain"
)

// Strategy is one attempt at extracting a schedule-of-values total from a
// workbook. Resolve returns false when the strategy does not apply or the
// value it found is implausible; it must never fail hard, because the
// chain continues past it.
type Strategy interface {
	Name() string
	Resolve(f *excelize.File) (domain.TIVResult, bool)
}

// Resolver runs an ordered chain of extraction strategies against one
// exposure workbook. The first strategy producing a plausible non-zero
// total wins and later strategies are not attempted. Resolution is pure:
// re-running on the same bytes yields the same total and strategy.
type Resolver struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewResolver builds the standard strategy chain. plausibleMin is the
// minimum value a bare summary cell must hold to be trusted as a schedule
// total; cell strategies below it are treated as non-matches.
func NewResolver(plausibleMin float64, logger *slog.Logger) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			summaryCellStrategy{sheets: []string{"Resumen", "RESUMEN"}, cell: "G24", min: plausibleMin},
			fixedCellStrategy{rowIdx: 17, colIdx: 22, min: plausibleMin},
			valueColumnStrategy{},
			componentScheduleStrategy{},
			prefixSheetStrategy{},
		},
		logger: logger,
	}
}

// Resolve extracts the total insured value from raw workbook bytes. A zero
// total means the value could not be determined; callers must surface
// burning cost as not computable in that case. Files that fail workbook
// parsing are retried as delimited text through the generic value-column
// search.
func (r *Resolver) Resolve(ctx context.Context, data []byte) domain.TIVResult {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		rows, csvErr := ingest.ReadDelimited(data)
		if csvErr != nil {
			r.logger.WarnContext(ctx, "exposure file unreadable",
				"error", err,
				"csv_error", csvErr,
			)
			return domain.TIVResult{}
		}
		result, ok := valueColumnFromRows(rows)
		if !ok {
			return domain.TIVResult{}
		}
		r.logger.InfoContext(ctx, "exposure resolved from delimited text",
			"strategy", result.Strategy,
			"total", result.Total,
		)
		return result
	}
	defer f.Close()

	for _, strategy := range r.strategies {
		result, ok := strategy.Resolve(f)
		if !ok {
			continue
		}
		r.logger.InfoContext(ctx, "exposure resolved",
			"strategy", result.Strategy,
			"total", result.Total,
			"locations", len(result.Records),
		)
		return result
	}

	r.logger.WarnContext(ctx, "no exposure strategy matched; TIV undetermined")
	return domain.TIVResult{}
}
