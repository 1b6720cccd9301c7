package assessment

import (
	"testing"

	"github.com/matrousse/record-sharing-backend/interfaces"
	"github.com/stretchr/testify/require"
)

func TestAssessEmptyGrades(t *testing.T) {
	require.Nil(t, Assess(nil, Percentage()))
	require.Nil(t, Assess([]interfaces.GradeItem{}, Percentage()))
}

func TestAssessProgressionScenario(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 8, Base: 10, Weight: 1, Date: "2024-01-01"},
		{ID: "g2", Value: 9, Base: 10, Weight: 1, Date: "2024-02-01"},
		{ID: "g3", Value: 9, Base: 10, Weight: 1, Date: "2024-03-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)

	// Mean (80+90+90)/3, older window {80,90} vs recent {90} gives a
	// 5-point improvement scaled to a 1-point bonus.
	require.InDelta(t, 1.0, result.ProgressionBonus, 1e-9)
	require.InDelta(t, 87.67, result.Score, 0.01)
	require.Equal(t, "GOOD", result.Code)
	require.Equal(t, "87.7%", result.FormattedValue)
}

func TestAssessOrdersByDateNotInput(t *testing.T) {
	// Same grades as the progression scenario, shuffled. The bonus must
	// come out identical because ordering is by date.
	grades := []interfaces.GradeItem{
		{ID: "g3", Value: 9, Base: 10, Weight: 1, Date: "2024-03-01"},
		{ID: "g1", Value: 8, Base: 10, Weight: 1, Date: "2024-01-01"},
		{ID: "g2", Value: 9, Base: 10, Weight: 1, Date: "2024-02-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.InDelta(t, 1.0, result.ProgressionBonus, 1e-9)
	require.InDelta(t, 87.67, result.Score, 0.01)
}

func TestAssessNoBonusUnderThreeGrades(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 5, Base: 10, Weight: 1, Date: "2024-01-01"},
		{ID: "g2", Value: 10, Base: 10, Weight: 1, Date: "2024-02-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.Zero(t, result.ProgressionBonus)
	require.InDelta(t, 75.0, result.Score, 1e-9)
}

func TestAssessNoBonusOnDecline(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 10, Base: 10, Weight: 1, Date: "2024-01-01"},
		{ID: "g2", Value: 9, Base: 10, Weight: 1, Date: "2024-02-01"},
		{ID: "g3", Value: 5, Base: 10, Weight: 1, Date: "2024-03-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.Zero(t, result.ProgressionBonus)
}

func TestAssessBonusIsCapped(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 0, Base: 10, Weight: 1, Date: "2024-01-01"},
		{ID: "g2", Value: 0, Base: 10, Weight: 1, Date: "2024-02-01"},
		{ID: "g3", Value: 10, Base: 10, Weight: 1, Date: "2024-03-01"},
	}

	// Older window mean 0, recent 100: raw bonus 20 is capped at 10.
	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.InDelta(t, 10.0, result.ProgressionBonus, 1e-9)
}

func TestAssessScoreIsCapped(t *testing.T) {
	// The older window carries no weight, so its mean is 0 and the raw
	// bonus saturates; mean plus bonus would exceed 100 without the cap.
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 5, Base: 10, Weight: 0, Date: "2024-01-01"},
		{ID: "g2", Value: 5, Base: 10, Weight: 0, Date: "2024-02-01"},
		{ID: "g3", Value: 10, Base: 10, Weight: 1, Date: "2024-03-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.InDelta(t, 10.0, result.ProgressionBonus, 1e-9)
	require.InDelta(t, 100.0, result.Score, 1e-9)
}

func TestAssessWeighting(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 10, Base: 10, Weight: 3, Date: "2024-01-01"},
		{ID: "g2", Value: 0, Base: 10, Weight: 1, Date: "2024-02-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.InDelta(t, 75.0, result.Score, 1e-9)
}

func TestAssessZeroTotalWeight(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 8, Base: 10, Weight: 0, Date: "2024-01-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.Zero(t, result.Score)
	require.Equal(t, "POOR", result.Code)
}

func TestAssessSkipsInvalidBase(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 8, Base: 0, Weight: 1, Date: "2024-01-01"},
		{ID: "g2", Value: 9, Base: 10, Weight: 1, Date: "2024-02-01"},
	}

	result := Assess(grades, Percentage())
	require.NotNil(t, result)
	require.InDelta(t, 90.0, result.Score, 1e-9)
}

func TestGradingSystemBands(t *testing.T) {
	cases := []struct {
		name   string
		system GradingSystem
		score  float64
		code   string
	}{
		{"percentage excellent", Percentage(), 95, "EXCELLENT"},
		{"percentage boundary excellent", Percentage(), 90, "EXCELLENT"},
		{"percentage good", Percentage(), 75, "GOOD"},
		{"percentage average", Percentage(), 50, "AVERAGE"},
		{"percentage poor", Percentage(), 49.9, "POOR"},
		{"letter depasse", Letter(), 92, "D"},
		{"letter acquis", Letter(), 80, "A"},
		{"letter partiellement", Letter(), 40, "PA"},
		{"letter non atteint", Letter(), 10, "NA"},
		{"color green", Color(), 97, "GREEN"},
		{"color lime", Color(), 76, "LIME"},
		{"color orange", Color(), 55, "ORANGE"},
		{"color red", Color(), 0, "RED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			band := bandFor(tc.system, tc.score)
			require.Equal(t, tc.code, band.Code)
		})
	}
}

func TestLetterFormatUsesCode(t *testing.T) {
	grades := []interfaces.GradeItem{
		{ID: "g1", Value: 8, Base: 10, Weight: 1, Date: "2024-01-01"},
	}

	result := Assess(grades, Letter())
	require.NotNil(t, result)
	require.Equal(t, "A", result.Code)
	require.Equal(t, "A", result.FormattedValue)
	require.Equal(t, "Acquis", result.Label)
}
