package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"treatylens/internal/actuarial"
	"treatylens/internal/currency"
	"treatylens/internal/exposure"
	"treatylens/internal/history"
	"treatylens/internal/infrastructure"
	"treatylens/internal/ingest"
	"treatylens/pkg/contracts/domain"
)

// AnalysisRequest is one submission: the insured's loss files plus the
// schedule of values. The exposure file is mandatory; claim files are not,
// because a clean new client legitimately has none.
type AnalysisRequest struct {
	Insured string
	// Currency overrides marker-based detection when set.
	Currency string
	// ReferencePerMille overrides the configured slip rate when positive.
	ReferencePerMille float64
	ClaimFiles        []ingest.File
	ExposureFile      ingest.File
}

// CurrencySummary discloses the conversion applied to the run.
type CurrencySummary struct {
	Code             string              `json:"code"`
	RatePerUSD       float64             `json:"rate_per_usd"`
	Source           currency.RateSource `json:"source"`
	TIVUSD           float64             `json:"tiv_usd"`
	TotalIncurredUSD float64             `json:"total_incurred_usd"`
}

// IngestSummary discloses what was extracted from the submission.
type IngestSummary struct {
	ClaimFiles    int                      `json:"claim_files"`
	FailedFiles   []string                 `json:"failed_files,omitempty"`
	Layouts       map[string]ingest.Layout `json:"layouts,omitempty"`
	HistoryClaims int                      `json:"history_claims"`
	// HistoryUnavailable is set when the claims history repository could
	// not be queried and the run proceeded without external history.
	HistoryUnavailable bool `json:"history_unavailable,omitempty"`
	TotalClaims        int  `json:"total_claims"`
}

// AnalysisResponse is the full result of one run.
type AnalysisResponse struct {
	AnalysisID  string                  `json:"analysis_id"`
	Insured     string                  `json:"insured"`
	GeneratedAt time.Time               `json:"generated_at"`
	Ingest      IngestSummary           `json:"ingest"`
	TIV         domain.TIVResult        `json:"tiv"`
	Currency    CurrencySummary         `json:"currency"`
	Analytics   *domain.AnalyticsResult `json:"analytics"`
}

// AnalysisService orchestrates one submission end to end: history lookup,
// claims consolidation, exposure resolution, analytics and currency
// disclosure.
type AnalysisService struct {
	consolidator *ingest.Consolidator
	resolver     *exposure.Resolver
	engine       *actuarial.Engine
	rates        *currency.Service
	history      *history.Repository
	logger       *slog.Logger
}

func NewAnalysisService(
	consolidator *ingest.Consolidator,
	resolver *exposure.Resolver,
	engine *actuarial.Engine,
	rates *currency.Service,
	repo *history.Repository,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		consolidator: consolidator,
		resolver:     resolver,
		engine:       engine,
		rates:        rates,
		history:      repo,
		logger:       logger.With(slog.String("component", "analysis_service")),
	}
}

// Analyze runs the full pipeline for one submission. A missing exposure
// file is the only hard failure; every degradation inside the pipeline,
// the history repository included, is reported in the response instead.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error) {
	if len(req.ExposureFile.Data) == 0 {
		infrastructure.AnalysesTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("exposure file is required")
	}

	var historyUnavailable bool
	historyClaims, err := s.history.ClaimsForInsured(ctx, req.Insured)
	if err != nil {
		if errors.Is(err, history.ErrInsuredNotFound) {
			s.logger.InfoContext(ctx, "insured has no claims history",
				"insured", req.Insured,
			)
		} else {
			// Repository outages degrade to a no-history run.
			historyUnavailable = true
			historyClaims = nil
			s.logger.WarnContext(ctx, "claims history unavailable, continuing without it",
				"insured", req.Insured,
				"error", err,
			)
		}
	}

	consolidated := s.consolidator.Consolidate(ctx, req.ClaimFiles, historyClaims)
	tiv := s.resolver.Resolve(ctx, req.ExposureFile.Data)

	engine := s.engine.WithReference(req.ReferencePerMille)
	analytics := engine.Analyze(ctx, consolidated.Claims, tiv)

	resp := &AnalysisResponse{
		AnalysisID:  uuid.NewString(),
		Insured:     req.Insured,
		GeneratedAt: time.Now().UTC(),
		Ingest: IngestSummary{
			ClaimFiles:         len(req.ClaimFiles),
			FailedFiles:        consolidated.FailedFiles,
			Layouts:            consolidated.Layouts,
			HistoryClaims:      len(historyClaims),
			HistoryUnavailable: historyUnavailable,
			TotalClaims:        len(consolidated.Claims),
		},
		TIV:       tiv,
		Analytics: analytics,
	}
	resp.Currency = s.currencySummary(ctx, req, tiv, analytics)

	infrastructure.AnalysesTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "analysis produced",
		"analysis_id", resp.AnalysisID,
		"insured", req.Insured,
		"claims", resp.Ingest.TotalClaims,
		"tiv_strategy", tiv.Strategy,
	)
	return resp, nil
}

// currencySummary detects the submission currency and converts the run's
// headline figures to USD. Rates come from a per-run session so both
// conversions use the same quote.
func (s *AnalysisService) currencySummary(ctx context.Context, req AnalysisRequest, tiv domain.TIVResult, analytics *domain.AnalyticsResult) CurrencySummary {
	code := req.Currency
	if code == "" {
		hints := []string{req.Insured, req.ExposureFile.Name}
		for _, f := range req.ClaimFiles {
			hints = append(hints, f.Name)
		}
		code = currency.Detect(hints...)
	}

	session := s.rates.NewSession()
	summary := CurrencySummary{Code: code}

	tivUSD, rate := session.ToUSD(ctx, tiv.Total, code)
	summary.RatePerUSD = rate.Value
	summary.Source = rate.Source
	summary.TIVUSD = tivUSD

	if analytics != nil && analytics.BurningCost != nil {
		incurredUSD, _ := session.ToUSD(ctx, analytics.BurningCost.TotalIncurred, code)
		summary.TotalIncurredUSD = incurredUSD
	}
	return summary
}
