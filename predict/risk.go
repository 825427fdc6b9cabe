package predict

// Decision thresholds on the raw churn probability.
const (
	ChurnThreshold      = 0.5
	HighRiskThreshold   = 0.7
	MediumRiskThreshold = 0.4
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskLevelFromProbability buckets a churn probability into a risk tier.
func RiskLevelFromProbability(p float64) RiskLevel {
	switch {
	case p > HighRiskThreshold:
		return RiskHigh
	case p > MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (r RiskLevel) String() string {
	return string(r)
}
