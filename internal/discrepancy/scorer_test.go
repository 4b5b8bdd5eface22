package discrepancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePerfectMatch(t *testing.T) {
	a := Score(ScoreInput{
		DeclaredWeight: 100, ActualWeight: 100,
		DeclaredValue: 5000, AssessedValue: 5000,
	})
	assert.Equal(t, 0.0, a.AnomalyScore)
	assert.Equal(t, "low", a.RiskLevel)
	assert.False(t, a.Mismatch)
}

func TestScoreWeightDeviation(t *testing.T) {
	// 20kg off on 100kg actual: 0.2 * 0.45 = 0.09
	a := Score(ScoreInput{
		DeclaredWeight: 120, ActualWeight: 100,
		DeclaredValue: 5000, AssessedValue: 5000,
	})
	assert.Equal(t, 20.0, a.WeightDelta)
	assert.Equal(t, 0.09, a.AnomalyScore)
	assert.False(t, a.Mismatch)
}

func TestScoreSaturatedComponents(t *testing.T) {
	// Both ratios far exceed 1; the final score caps at 1.
	a := Score(ScoreInput{
		DeclaredWeight: 500, ActualWeight: 100,
		DeclaredValue: 20000, AssessedValue: 5000,
		RouteRisk: 1, HistoricalRisk: 1,
	})
	assert.Equal(t, 1.0, a.AnomalyScore)
	assert.Equal(t, "high", a.RiskLevel)
	assert.True(t, a.Mismatch)
}

func TestScoreMediumRisk(t *testing.T) {
	// weight ratio 1.0 -> 0.45; value exact -> total 0.45
	a := Score(ScoreInput{
		DeclaredWeight: 200, ActualWeight: 100,
		DeclaredValue: 5000, AssessedValue: 5000,
	})
	assert.Equal(t, 0.45, a.AnomalyScore)
	assert.Equal(t, "medium", a.RiskLevel)
	assert.True(t, a.Mismatch)
}

func TestScoreGrossWeightMismatchIsHigh(t *testing.T) {
	// 30kg declared vs 10kg actual: ratio 2.0 feeds in uncapped,
	// 2.0 * 0.45 = 0.9.
	a := Score(ScoreInput{
		DeclaredWeight: 30, ActualWeight: 10,
		DeclaredValue: 5000, AssessedValue: 5000,
	})
	assert.Equal(t, 0.9, a.AnomalyScore)
	assert.Equal(t, "high", a.RiskLevel)
	assert.True(t, a.Mismatch)
}

func TestScoreTinyShipmentFloor(t *testing.T) {
	// Actuals below 1 use the floor of 1, so a 0.5 delta scores 0.5 ratio.
	a := Score(ScoreInput{
		DeclaredWeight: 0.5, ActualWeight: 0,
		DeclaredValue: 0, AssessedValue: 0,
	})
	assert.Equal(t, 0.5, a.WeightDelta)
	assert.InDelta(t, 0.225, a.AnomalyScore, 1e-9)
}

func TestScoreRounding(t *testing.T) {
	a := Score(ScoreInput{
		DeclaredWeight: 100.333, ActualWeight: 100,
		DeclaredValue: 5000, AssessedValue: 5000,
	})
	assert.Equal(t, 0.33, a.WeightDelta)
	assert.Equal(t, 0.0015, a.AnomalyScore)
}
