// Package discrepancy scores declared-vs-actual shipment mismatches and
// manages the resulting case and dispute workflow.
package discrepancy

import "math"

// Component weights. Weight and value dominate; route and history nudge.
const (
	weightFactor     = 0.45
	valueFactor      = 0.45
	routeFactor      = 0.05
	historicalFactor = 0.05

	mismatchThreshold  = 0.2
	riskHighThreshold  = 0.7
	riskMedThreshold   = 0.35
)

type ScoreInput struct {
	DeclaredWeight float64 `json:"declared_weight"`
	ActualWeight   float64 `json:"actual_weight"`
	DeclaredValue  float64 `json:"declared_value"`
	AssessedValue  float64 `json:"assessed_value"`
	RouteRisk      float64 `json:"route_risk"`
	HistoricalRisk float64 `json:"historical_risk"`
}

type Assessment struct {
	WeightDelta  float64 `json:"weight_delta"`
	ValueDelta   float64 `json:"value_delta"`
	AnomalyScore float64 `json:"anomaly_score"`
	RiskLevel    string  `json:"risk_level"`
	Mismatch     bool    `json:"mismatch"`
}

// Score computes the weighted anomaly score. Relative deltas are normalized
// against the actual (assessed) figure with a floor of 1 to avoid division
// blowups on tiny shipments. Delta ratios feed in uncapped so gross
// mismatches dominate; only the final score is capped at 1.
func Score(in ScoreInput) Assessment {
	weightDelta := math.Abs(in.DeclaredWeight - in.ActualWeight)
	valueDelta := math.Abs(in.DeclaredValue - in.AssessedValue)

	weightRatio := weightDelta / math.Max(in.ActualWeight, 1)
	valueRatio := valueDelta / math.Max(in.AssessedValue, 1)

	score := weightRatio*weightFactor +
		valueRatio*valueFactor +
		clamp01(in.RouteRisk)*routeFactor +
		clamp01(in.HistoricalRisk)*historicalFactor
	score = math.Min(1, score)

	risk := "low"
	switch {
	case score >= riskHighThreshold:
		risk = "high"
	case score >= riskMedThreshold:
		risk = "medium"
	}

	return Assessment{
		WeightDelta:  round2(weightDelta),
		ValueDelta:   round2(valueDelta),
		AnomalyScore: round4(score),
		RiskLevel:    risk,
		Mismatch:     score > mismatchThreshold,
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
