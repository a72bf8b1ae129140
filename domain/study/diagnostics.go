package study

// VIFEntry is one row of the multicollinearity screen. Flagged marks
// features whose VIF exceeds the configured threshold.
type VIFEntry struct {
	Feature string  `json:"feature"`
	VIF     float64 `json:"vif"`
	Flagged bool    `json:"flagged"`
}

// MissingEntry is one row of the missing-value audit. Only columns
// with at least one missing value are reported.
type MissingEntry struct {
	Column       string  `json:"column"`
	MissingCount int     `json:"missing_count"`
	MissingPct   float64 `json:"missing_pct"`
}

// DescriptiveRow summarises one analysis column over its defined
// values.
type DescriptiveRow struct {
	Column string  `json:"column"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}
