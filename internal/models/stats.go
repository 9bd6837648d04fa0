package models

// CheckStats is an aggregate summary over a set of checks.
type CheckStats struct {
	TotalChecks    int64   `json:"total_checks"`
	Revenue        float64 `json:"revenue"`
	CashChecks     int64   `json:"cash_checks"`
	CashlessChecks int64   `json:"cashless_checks"`
	AverageTotal   float64 `json:"average_total"`
}
