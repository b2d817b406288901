package actuarial

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"treatylens/pkg/contracts/domain"
)

// Engine computes the analytics blocks for a consolidated claims history
// against a resolved schedule of values. Each block degrades independently
// when its inputs are insufficient instead of failing the whole run.
type Engine struct {
	referencePerMille float64
	logger            *slog.Logger
}

func NewEngine(referencePerMille float64, logger *slog.Logger) *Engine {
	return &Engine{
		referencePerMille: referencePerMille,
		logger:            logger,
	}
}

// WithReference returns a copy of the engine comparing against a
// caller-supplied slip rate instead of the configured default. Non-positive
// overrides are ignored.
func (e *Engine) WithReference(perMille float64) *Engine {
	if perMille <= 0 {
		return e
	}
	clone := *e
	clone.referencePerMille = perMille
	return &clone
}

// Analyze runs every block over the consolidated history. claims must
// already be filtered to informative records (incurred > 0) with loss
// years back-filled; the consolidator guarantees both.
func (e *Engine) Analyze(ctx context.Context, claims []domain.ClaimRecord, tiv domain.TIVResult) *domain.AnalyticsResult {
	result := &domain.AnalyticsResult{
		FrequencySeverity: e.frequencySeverity(claims),
		Trend:             e.trend(claims),
		BurningCost:       e.burningCost(claims, tiv),
		Reserves:          e.reserves(claims),
		ByYear:            byYear(claims),
		ByPeril:           byPeril(claims),
		TopLosses:         topLosses(claims, 5),
	}
	result.PricingNotes = pricingNotes(result)

	e.logger.InfoContext(ctx, "analysis complete",
		"claims", result.FrequencySeverity.TotalClaims,
		"profile", result.FrequencySeverity.Profile,
		"confidence", result.FrequencySeverity.Confidence,
		"burning_cost_computable", result.BurningCost.Computable,
	)
	return result
}

func (e *Engine) frequencySeverity(claims []domain.ClaimRecord) *domain.FrequencySeverity {
	n := len(claims)
	if n == 0 {
		return &domain.FrequencySeverity{
			Profile:    domain.LossProfileNoHistory,
			Confidence: domain.ConfidenceCritical,
			Disclaimers: []string{
				"No informative claims in the submission; frequency and severity statistics cannot be produced.",
			},
		}
	}

	severities := make([]float64, 0, n)
	years := map[int]struct{}{}
	for _, c := range claims {
		severities = append(severities, c.Incurred)
		if y := c.OccurrenceYear(); y > 0 {
			years[y] = struct{}{}
		}
	}
	yearsObserved := len(years)

	fs := &domain.FrequencySeverity{
		TotalClaims:    n,
		YearsObserved:  yearsObserved,
		MeanSeverity:   mean(severities),
		MedianSeverity: median(severities),
		StdDeviation:   sampleStdDev(severities),
	}
	if yearsObserved > 0 {
		fs.AnnualFrequency = float64(n) / float64(yearsObserved)
	}
	if n >= 3 && fs.MeanSeverity > 0 {
		cv := fs.StdDeviation / fs.MeanSeverity
		fs.CoefficientOfVariation = &cv
	}

	// Source catastrophe flags stay on the record as metadata; the count
	// here is strictly the severity distribution above p95.
	fs.CatastrophicThreshold = percentile(severities, 95)
	for _, c := range claims {
		if c.Incurred > fs.CatastrophicThreshold {
			fs.CatastrophicClaims++
		}
	}

	catShare := float64(fs.CatastrophicClaims) / float64(n)
	switch {
	case (fs.CoefficientOfVariation != nil && *fs.CoefficientOfVariation > 2) || catShare > 0.10:
		fs.Profile = domain.LossProfileCatastrophic
		fs.CoverRecommendation = "Severity driven portfolio: excess of loss protection with a catastrophe layer is recommended."
	case fs.AnnualFrequency > 50:
		fs.Profile = domain.LossProfileFrequent
		fs.CoverRecommendation = "Frequency driven portfolio: proportional cover or a working excess of loss with a low priority is recommended."
	default:
		fs.Profile = domain.LossProfileMixed
		fs.CoverRecommendation = "Mixed portfolio: a combination of proportional cover and excess of loss protection is recommended."
	}

	switch {
	case n < 3:
		fs.Confidence = domain.ConfidenceCritical
		fs.Disclaimers = append(fs.Disclaimers,
			fmt.Sprintf("Only %d informative claims: statistics below the minimum sample and not valid for pricing.", n))
	case n < 10:
		fs.Confidence = domain.ConfidenceLow
		fs.Disclaimers = append(fs.Disclaimers,
			fmt.Sprintf("Sample of %d claims: statistics are indicative only and carry wide uncertainty.", n))
	default:
		fs.Confidence = domain.ConfidenceAdequate
	}
	return fs
}

func (e *Engine) trend(claims []domain.ClaimRecord) *domain.Trend {
	buckets := byYear(claims)
	t := &domain.Trend{YearsObserved: len(buckets)}
	if len(buckets) < 3 {
		t.Reason = "fewer than 3 distinct loss years; trend analysis requires at least 3"
		return t
	}
	t.Available = true

	first, last := buckets[0], buckets[len(buckets)-1]
	t.Frequency = trendMeasure(float64(first.Claims), float64(last.Claims))
	t.Severity = trendMeasure(first.MeanSeverity, last.MeanSeverity)
	return t
}

// trendMeasure classifies the first-to-last-year delta with a 10 percent
// dead band on either side of flat.
func trendMeasure(first, last float64) *domain.TrendMeasure {
	m := &domain.TrendMeasure{Direction: domain.TrendStable}
	if first == 0 {
		// A zero base year offers no usable delta; report flat.
		return m
	}
	m.PercentChange = (last - first) / first * 100
	switch {
	case m.PercentChange > 10:
		m.Direction = domain.TrendIncreasing
	case m.PercentChange < -10:
		m.Direction = domain.TrendDecreasing
	}
	return m
}

func (e *Engine) burningCost(claims []domain.ClaimRecord, tiv domain.TIVResult) *domain.BurningCost {
	bc := &domain.BurningCost{
		ReferencePerMille: e.referencePerMille,
		TIVTotal:          tiv.Total,
	}
	years := map[int]struct{}{}
	for _, c := range claims {
		bc.TotalIncurred += c.Incurred
		if y := c.OccurrenceYear(); y > 0 {
			years[y] = struct{}{}
		}
	}
	bc.YearsObserved = len(years)

	if len(claims) == 0 {
		bc.Reason = "no informative claims"
		return bc
	}
	if bc.YearsObserved > 0 {
		bc.AnnualizedLoss = bc.TotalIncurred / float64(bc.YearsObserved)
	}
	if !tiv.Resolved() {
		bc.Reason = "total insured value could not be determined from the exposure file"
		return bc
	}
	if bc.YearsObserved == 0 {
		bc.Reason = "no claim carries a usable loss year"
		return bc
	}

	bc.Computable = true
	rate := bc.AnnualizedLoss / tiv.Total * 1000
	pct := rate / 10
	margin := e.referencePerMille - rate
	marginPct := margin / e.referencePerMille * 100
	bc.RatePerMille = &rate
	bc.RatePercent = &pct
	bc.MarginPerMille = &margin
	bc.MarginPercent = &marginPct

	switch {
	case rate > e.referencePerMille:
		bc.Status = domain.RateStatusRed
		bc.Sufficiency = fmt.Sprintf("Burning cost of %.2f per mille exceeds the %.2f per mille reference rate: the current rate is insufficient.", rate, e.referencePerMille)
	case rate > 0.8*e.referencePerMille:
		bc.Status = domain.RateStatusYellow
		bc.Sufficiency = fmt.Sprintf("Burning cost of %.2f per mille is within 20%% of the %.2f per mille reference rate: the margin is thin.", rate, e.referencePerMille)
	default:
		bc.Status = domain.RateStatusGreen
		bc.Sufficiency = fmt.Sprintf("Burning cost of %.2f per mille sits comfortably below the %.2f per mille reference rate.", rate, e.referencePerMille)
	}
	return bc
}

func (e *Engine) reserves(claims []domain.ClaimRecord) *domain.ReserveAnalysis {
	ra := &domain.ReserveAnalysis{TotalClaims: len(claims)}
	if len(claims) == 0 {
		ra.Alert = "no claims to assess"
		ra.Status = domain.RateStatusGreen
		return ra
	}
	ra.Available = true

	var withReserves, unliquidated int
	var reserved []float64
	for _, c := range claims {
		ra.TotalPaid += c.Paid
		ra.TotalReserved += c.Reserved
		ra.TotalIncurred += c.Incurred
		if c.Reserved > 0 {
			withReserves++
			reserved = append(reserved, c.Reserved)
		}
		if c.Unliquidated() {
			unliquidated++
		}
	}
	n := float64(len(claims))
	ra.PctWithReserves = float64(withReserves) / n * 100
	ra.PctUnliquidated = float64(unliquidated) / n * 100

	if ra.TotalPaid > 0 {
		ratio := ra.TotalReserved / ra.TotalPaid
		ra.ReservedToPaidRatio = &ratio
	} else if ra.TotalReserved > 0 {
		ra.RatioUnbounded = true
	}

	// A single open claim carrying more than 3x the mean reserve is
	// flagged as likely deterioration.
	if len(reserved) > 1 {
		meanReserve := mean(reserved)
		for _, r := range reserved {
			if r > 3*meanReserve {
				ra.HighDeterioration++
			}
		}
	}

	switch {
	case ra.PctUnliquidated >= 100:
		ra.Status = domain.RateStatusRed
		ra.Alert = "Every claim in the history is unliquidated: incurred amounts are entirely reserve estimates and may deteriorate."
	case ra.PctUnliquidated >= 50:
		ra.Status = domain.RateStatusYellow
		ra.Alert = fmt.Sprintf("%.0f%% of claims are unliquidated: the history is dominated by open reserves.", ra.PctUnliquidated)
	case ra.PctWithReserves > 30:
		ra.Status = domain.RateStatusYellow
		ra.Alert = fmt.Sprintf("%.0f%% of claims carry open reserves: monitor reserve development.", ra.PctWithReserves)
	default:
		ra.Status = domain.RateStatusGreen
		ra.Alert = "Reserve position is predominantly settled."
	}
	return ra
}

func byYear(claims []domain.ClaimRecord) []domain.YearBreakdown {
	buckets := map[int]*domain.YearBreakdown{}
	for _, c := range claims {
		y := c.OccurrenceYear()
		if y == 0 {
			continue
		}
		b, ok := buckets[y]
		if !ok {
			b = &domain.YearBreakdown{Year: y}
			buckets[y] = b
		}
		b.Claims++
		b.TotalIncurred += c.Incurred
		b.TotalPaid += c.Paid
	}
	out := make([]domain.YearBreakdown, 0, len(buckets))
	for _, b := range buckets {
		if b.Claims > 0 {
			b.MeanSeverity = b.TotalIncurred / float64(b.Claims)
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func byPeril(claims []domain.ClaimRecord) []domain.PerilBreakdown {
	if len(claims) == 0 {
		return nil
	}
	buckets := map[domain.PerilCategory]*domain.PerilBreakdown{}
	for _, c := range claims {
		cat := domain.ClassifyPeril(c.Cause)
		b, ok := buckets[cat]
		if !ok {
			b = &domain.PerilBreakdown{Category: cat}
			buckets[cat] = b
		}
		b.Claims++
		b.TotalIncurred += c.Incurred
	}
	out := make([]domain.PerilBreakdown, 0, len(buckets))
	for _, b := range buckets {
		b.RelativeFrequency = float64(b.Claims) / float64(len(claims))
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalIncurred != out[j].TotalIncurred {
			return out[i].TotalIncurred > out[j].TotalIncurred
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func topLosses(claims []domain.ClaimRecord, limit int) []domain.SeverityEntry {
	sorted := make([]domain.ClaimRecord, len(claims))
	copy(sorted, claims)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Incurred > sorted[j].Incurred })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]domain.SeverityEntry, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, domain.SeverityEntry{
			Cause:      c.Cause,
			Incurred:   c.Incurred,
			OccurredAt: c.OccurredAt,
		})
	}
	return out
}

// pricingNotes distils the per-block findings into the short narrative
// list carried at the top of the response.
func pricingNotes(r *domain.AnalyticsResult) []string {
	var notes []string
	if r.FrequencySeverity != nil {
		notes = append(notes, r.FrequencySeverity.Disclaimers...)
		if r.FrequencySeverity.CoverRecommendation != "" {
			notes = append(notes, r.FrequencySeverity.CoverRecommendation)
		}
	}
	if r.BurningCost != nil {
		if r.BurningCost.Computable {
			notes = append(notes, r.BurningCost.Sufficiency)
		} else if r.BurningCost.Reason != "" {
			notes = append(notes, "Burning cost not computable: "+r.BurningCost.Reason+".")
		}
	}
	if r.Reserves != nil && r.Reserves.Available && r.Reserves.Status != domain.RateStatusGreen {
		notes = append(notes, r.Reserves.Alert)
	}
	return notes
}
