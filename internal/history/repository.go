package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"treatylens/internal/config"
	"treatylens/pkg/contracts/domain"
)

// ErrInsuredNotFound is returned when the fuzzy name lookup matches no
// insured in the portfolio database.
var ErrInsuredNotFound = errors.New("insured not found in claims history")

// Repository reads prior-year claims for an insured from the portfolio
// database. A nil Repository is valid and reports no history, so callers
// never branch on whether the database is configured.
type Repository struct {
	db       *sql.DB
	lookback int
	timeout  time.Duration
	logger   *slog.Logger
}

// New opens the portfolio database. Returns (nil, nil) when no DSN is
// configured; the service then runs on uploaded files alone.
func New(cfg config.HistoryConfig, logger *slog.Logger) (*Repository, error) {
	if cfg.DSN == "" {
		logger.Info("claims history database not configured; running file-only")
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Repository{
		db:       db,
		lookback: cfg.LookbackYears,
		timeout:  cfg.QueryTimeout,
		logger:   logger,
	}, nil
}

// Ping verifies connectivity at startup.
func (r *Repository) Ping(ctx context.Context) error {
	if r == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	if r == nil {
		return nil
	}
	return r.db.Close()
}

// ClaimsForInsured returns the insured's claims from the lookback window,
// matching the name case-insensitively on either side of a substring so
// "La Costeña" finds "CONSERVAS LA COSTEÑA SA DE CV". Returns
// ErrInsuredNotFound when the name matches nothing, which callers treat
// as an empty history rather than a failure.
func (r *Repository) ClaimsForInsured(ctx context.Context, insured string) ([]domain.ClaimRecord, error) {
	if r == nil || insured == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var insuredID int64
	var canonical string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name
		FROM insureds
		WHERE name ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || name || '%'
		ORDER BY length(name) ASC
		LIMIT 1`, insured).Scan(&insuredID, &canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsuredNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up insured %q: %w", insured, err)
	}

	cutoff := time.Now().AddDate(-r.lookback, 0, 0)
	rows, err := r.db.QueryContext(ctx, `
		SELECT reference, occurred_at, paid, reserved, incurred, cause, catastrophic
		FROM claims
		WHERE insured_id = $1 AND (occurred_at IS NULL OR occurred_at >= $2)
		ORDER BY occurred_at DESC NULLS LAST`, insuredID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query claims for insured %q: %w", canonical, err)
	}
	defer rows.Close()

	var claims []domain.ClaimRecord
	for rows.Next() {
		var (
			ref          sql.NullString
			occurred     sql.NullTime
			paid         sql.NullFloat64
			reserved     sql.NullFloat64
			incurred     sql.NullFloat64
			cause        sql.NullString
			catastrophic sql.NullBool
		)
		if err := rows.Scan(&ref, &occurred, &paid, &reserved, &incurred, &cause, &catastrophic); err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}
		claim := domain.ClaimRecord{
			Reference: ref.String,
			Paid:      paid.Float64,
			Reserved:  reserved.Float64,
			Incurred:  incurred.Float64,
			Cause:     cause.String,
			Source:    domain.ClaimSourceHistory,
		}
		if occurred.Valid {
			t := occurred.Time
			claim.OccurredAt = &t
			claim.Year = t.Year()
		}
		if catastrophic.Valid {
			v := catastrophic.Bool
			claim.Catastrophic = &v
		}
		if claim.Incurred == 0 {
			claim.Incurred = claim.Paid + claim.Reserved
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}

	r.logger.InfoContext(ctx, "claims history loaded",
		"insured", canonical,
		"claims", len(claims),
		"lookback_years", r.lookback,
	)
	return claims, nil
}
