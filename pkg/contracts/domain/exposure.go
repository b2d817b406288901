package domain

// ExposureRecord represents one insured-location valuation row from a
// schedule of values. Component columns are zero when the source layout
// does not break values down.
type ExposureRecord struct {
	Location             string  `json:"location,omitempty"`
	Structures           float64 `json:"structures"`
	Inventory            float64 `json:"inventory"`
	Contents             float64 `json:"contents"`
	BusinessInterruption float64 `json:"business_interruption"`
	Total                float64 `json:"total"`
}

// TIVResult is the outcome of exposure resolution for one workbook.
// A Total of zero means the value could not be determined; downstream
// consumers must treat burning cost as not computable in that case,
// never as a genuine zero exposure.
type TIVResult struct {
	Records  []ExposureRecord `json:"records,omitempty"`
	Total    float64          `json:"total"`
	Strategy string           `json:"strategy,omitempty"`
}

// Resolved reports whether a plausible non-zero total was extracted.
func (t TIVResult) Resolved() bool {
	return t.Total > 0
}
