package domain

import (
	"time"
)

// LossProfile classifies the overall shape of a claims history.
type LossProfile string

const (
	LossProfileCatastrophic LossProfile = "catastrophic_high_severity"
	LossProfileFrequent     LossProfile = "frequent_low_severity"
	LossProfileMixed        LossProfile = "mixed"
	LossProfileNoHistory    LossProfile = "no_history"
)

// Confidence grades the statistical reliability of an analysis, driven by
// sample size.
type Confidence string

const (
	// ConfidenceCritical marks samples below 3 claims: statistically invalid.
	ConfidenceCritical Confidence = "critical"
	// ConfidenceLow marks samples of 3 to 9 claims.
	ConfidenceLow Confidence = "low"
	// ConfidenceAdequate marks samples of 10 or more claims.
	ConfidenceAdequate Confidence = "adequate"
)

// RateStatus is the three-tier traffic light used for pricing sufficiency
// and reserve management alerts.
type RateStatus string

const (
	RateStatusRed    RateStatus = "red"
	RateStatusYellow RateStatus = "yellow"
	RateStatusGreen  RateStatus = "green"
)

// TrendDirection classifies a first-to-last-year percentage change.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// FrequencySeverity is the frequency/severity block of an analysis.
// CoefficientOfVariation is nil when the sample is too small (n < 3) for
// the statistic to be meaningful.
type FrequencySeverity struct {
	Profile                LossProfile `json:"profile"`
	TotalClaims            int         `json:"total_claims"`
	YearsObserved          int         `json:"years_observed"`
	AnnualFrequency        float64     `json:"annual_frequency"`
	MeanSeverity           float64     `json:"mean_severity"`
	MedianSeverity         float64     `json:"median_severity"`
	StdDeviation           float64     `json:"std_deviation"`
	CoefficientOfVariation *float64    `json:"coefficient_of_variation"`
	CatastrophicThreshold  float64     `json:"catastrophic_threshold"`
	CatastrophicClaims     int         `json:"catastrophic_claims"`
	CoverRecommendation    string      `json:"cover_recommendation"`
	Confidence             Confidence  `json:"confidence"`
	Disclaimers            []string    `json:"disclaimers,omitempty"`
}

// TrendMeasure is a single first/last-year delta with its classification.
type TrendMeasure struct {
	PercentChange float64        `json:"percent_change"`
	Direction     TrendDirection `json:"direction"`
}

// YearBreakdown aggregates claims for a single loss year.
type YearBreakdown struct {
	Year          int     `json:"year"`
	Claims        int     `json:"claims"`
	TotalIncurred float64 `json:"total_incurred"`
	TotalPaid     float64 `json:"total_paid"`
	MeanSeverity  float64 `json:"mean_severity"`
}

// Trend is the loss-trend block. Frequency and Severity are nil when
// fewer than 3 distinct loss years are available.
type Trend struct {
	Available     bool          `json:"available"`
	Reason        string        `json:"reason,omitempty"`
	YearsObserved int           `json:"years_observed"`
	Frequency     *TrendMeasure `json:"frequency,omitempty"`
	Severity      *TrendMeasure `json:"severity,omitempty"`
}

// BurningCost is the technical-rate block. Computable is false when there
// are no usable claims or the TIV total is undetermined.
type BurningCost struct {
	Computable        bool       `json:"computable"`
	Reason            string     `json:"reason,omitempty"`
	TotalIncurred     float64    `json:"total_incurred"`
	YearsObserved     int        `json:"years_observed"`
	AnnualizedLoss    float64    `json:"annualized_loss"`
	TIVTotal          float64    `json:"tiv_total"`
	RatePerMille      *float64   `json:"rate_per_mille"`
	RatePercent       *float64   `json:"rate_percent"`
	ReferencePerMille float64    `json:"reference_per_mille"`
	MarginPerMille    *float64   `json:"margin_per_mille"`
	MarginPercent     *float64   `json:"margin_percent"`
	Status            RateStatus `json:"status,omitempty"`
	Sufficiency       string     `json:"sufficiency,omitempty"`
}

// ReserveAnalysis is the reserve adequacy / IBNR proxy block.
// ReservedToPaidRatio is nil when nothing has been paid yet; RatioUnbounded
// distinguishes that case from "ratio not computed".
type ReserveAnalysis struct {
	Available           bool       `json:"available"`
	TotalClaims         int        `json:"total_claims"`
	TotalPaid           float64    `json:"total_paid"`
	TotalReserved       float64    `json:"total_reserved"`
	TotalIncurred       float64    `json:"total_incurred"`
	PctWithReserves     float64    `json:"pct_with_reserves"`
	PctUnliquidated     float64    `json:"pct_unliquidated"`
	ReservedToPaidRatio *float64   `json:"reserved_to_paid_ratio"`
	RatioUnbounded      bool       `json:"ratio_unbounded"`
	HighDeterioration   int        `json:"high_deterioration_claims"`
	Status              RateStatus `json:"status"`
	Alert               string     `json:"alert"`
}

// PerilBreakdown aggregates claims by classified peril category.
type PerilBreakdown struct {
	Category          PerilCategory `json:"category"`
	Claims            int           `json:"claims"`
	TotalIncurred     float64       `json:"total_incurred"`
	RelativeFrequency float64       `json:"relative_frequency"`
}

// SeverityEntry is one row of the largest-loss list.
type SeverityEntry struct {
	Cause      string     `json:"cause"`
	Incurred   float64    `json:"incurred"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// AnalyticsResult bundles every analysis block for one run. Blocks degrade
// independently: each carries its own availability flag rather than being
// dropped from the payload.
type AnalyticsResult struct {
	FrequencySeverity *FrequencySeverity `json:"frequency_severity"`
	Trend             *Trend             `json:"trend"`
	BurningCost       *BurningCost       `json:"burning_cost"`
	Reserves          *ReserveAnalysis   `json:"reserves"`
	ByYear            []YearBreakdown    `json:"by_year,omitempty"`
	ByPeril           []PerilBreakdown   `json:"by_peril,omitempty"`
	TopLosses         []SeverityEntry    `json:"top_losses,omitempty"`
	PricingNotes      []string           `json:"pricing_notes,omitempty"`
}
