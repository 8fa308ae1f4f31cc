package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsInsufficientHistoryBelowMinimum(t *testing.T) {
	f := Run([]float64{1, 2, 3}, 7)
	assert.Equal(t, insufficientHistory, f.Reason)
	assert.Empty(t, f.Points)
}

func TestRunUsesSimpleExponentialSmoothingForShortFlatSeries(t *testing.T) {
	series := []float64{10, 10, 10, 10, 10, 10, 10, 10}
	f := Run(series, 3)
	require.Equal(t, MethodSimpleExponential, f.Method)
	require.Len(t, f.Points, 3)
	assert.InDelta(t, 10, f.Points[0].Value, 0.5)
	// A perfectly flat series leaves zero in-sample residuals, so the band
	// collapses onto the point forecast.
	assert.Equal(t, f.Points[0].Value, f.Points[0].Lower)
	assert.Equal(t, f.Points[0].Value, f.Points[0].Upper)
}

func TestRunUsesDoubleExponentialSmoothingForTrendingMidSeries(t *testing.T) {
	series := make([]float64, 20)
	for i := range series {
		series[i] = float64(i) * 2
	}
	f := Run(series, 5)
	assert.Equal(t, MethodDoubleExponential, f.Method)
	require.Len(t, f.Points, 5)
	assert.Greater(t, f.Points[4].Value, f.Points[0].Value)
}

func TestRunUsesHoltDampedForLongStableTrendSeries(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = 100 + float64(i)*0.5
	}
	f := Run(series, 10)
	assert.Equal(t, MethodHoltDamped, f.Method)
	require.Len(t, f.Points, 10)
}

func TestConfidenceBandWidensWithHorizon(t *testing.T) {
	series := []float64{5, 7, 4, 8, 6, 9, 5, 10, 6, 11}
	f := Run(series, 5)
	require.Len(t, f.Points, 5)
	firstWidth := f.Points[0].Upper - f.Points[0].Lower
	lastWidth := f.Points[4].Upper - f.Points[4].Lower
	assert.GreaterOrEqual(t, lastWidth, firstWidth)
}

func TestRunCapsForecastDaysAtMaximum(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = float64(i)
	}
	f := Run(series, 9000)
	assert.Len(t, f.Points, MaxForecastDays)
}

func TestRunTruncatesHistoryAtMaximum(t *testing.T) {
	series := make([]float64, 400)
	for i := range series {
		series[i] = float64(i % 5)
	}
	f := Run(series, 3)
	require.NotEqual(t, insufficientHistory, f.Reason)
}
