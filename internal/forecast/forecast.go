// Package forecast implements the forecasting engine: exponential
// smoothing method selection over a daily KPI series, with 95% confidence
// bands, replacing a feed-ingestion role with pure statistical projection.
package forecast

import "math"

// Point is one forecasted day: Value plus its 95% confidence band.
type Point struct {
	StepsAhead int
	Value      float64
	Lower      float64
	Upper      float64
}

// Method identifies which smoothing model produced a Forecast.
type Method string

const (
	MethodSimpleExponential Method = "SIMPLE_EXPONENTIAL"
	MethodDoubleExponential Method = "DOUBLE_EXPONENTIAL"
	MethodHoltDamped        Method = "HOLT_DAMPED"
)

const (
	MinHistoricalDays = 7
	MaxHistoricalDays = 90
	MinForecastDays   = 1
	MaxForecastDays   = 30

	doubleExpThreshold = 14
	holtThreshold      = 30
)

// Forecast is the result of Run: either Points+Method, or an empty series
// with Reason set to the INSUFFICIENT_HISTORY failure mode.
type Forecast struct {
	Method Method
	Points []Point
	Reason string
}

const insufficientHistory = "INSUFFICIENT_HISTORY"

// Run selects a smoothing method automatically from len(series) and the
// detected trend, then projects forecastDays points with 95% bands.
func Run(series []float64, forecastDays int) Forecast {
	if len(series) < MinHistoricalDays || forecastDays < MinForecastDays {
		return Forecast{Reason: insufficientHistory}
	}
	if forecastDays > MaxForecastDays {
		forecastDays = MaxForecastDays
	}
	if len(series) > MaxHistoricalDays {
		series = series[len(series)-MaxHistoricalDays:]
	}

	switch {
	case len(series) < doubleExpThreshold:
		return simpleExponentialSmoothing(series, forecastDays)
	case len(series) < holtThreshold:
		if hasTrend(series) {
			return doubleExponentialSmoothing(series, forecastDays)
		}
		return simpleExponentialSmoothing(series, forecastDays)
	default:
		if hasTrend(series) && stableVariance(series) {
			return holtDamped(series, forecastDays)
		}
		if hasTrend(series) {
			return doubleExponentialSmoothing(series, forecastDays)
		}
		return simpleExponentialSmoothing(series, forecastDays)
	}
}

// hasTrend reports whether the series' second half average differs from
// its first half average by more than one residual standard deviation —
// a coarse but deterministic trend detector appropriate for this scope.
func hasTrend(series []float64) bool {
	if len(series) < 4 {
		return false
	}
	mid := len(series) / 2
	firstHalf := mean(series[:mid])
	secondHalf := mean(series[mid:])
	sigma := stddev(series, mean(series))
	if sigma == 0 {
		return secondHalf != firstHalf
	}
	return math.Abs(secondHalf-firstHalf) > sigma
}

// stableVariance reports whether the rolling variance across thirds of the
// series does not differ by more than a factor of 2 — a simple stability
// heuristic sufficient to gate Holt's damped trend model.
func stableVariance(series []float64) bool {
	n := len(series)
	third := n / 3
	if third < 2 {
		return false
	}
	v1 := variance(series[:third])
	v2 := variance(series[third : 2*third])
	v3 := variance(series[2*third:])
	maxV := math.Max(v1, math.Max(v2, v3))
	minV := math.Min(v1, math.Min(v2, v3))
	if minV == 0 {
		return maxV == 0
	}
	return maxV/minV <= 2
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	m := mean(xs)
	return stddev(xs, m) * stddev(xs, m)
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func band(forecast []float64, residualSigma float64) []Point {
	points := make([]Point, len(forecast))
	for i, v := range forecast {
		h := float64(i + 1)
		width := 1.96 * residualSigma * math.Sqrt(h)
		points[i] = Point{StepsAhead: i + 1, Value: v, Lower: v - width, Upper: v + width}
	}
	return points
}

func residualSigma(actual, fitted []float64) float64 {
	n := len(actual)
	if n == 0 {
		return 0
	}
	residuals := make([]float64, n)
	for i := range actual {
		residuals[i] = actual[i] - fitted[i]
	}
	return stddev(residuals, mean(residuals))
}

const smoothingAlpha = 0.3

// simpleExponentialSmoothing implements level-only SES: l_t = α y_t + (1-α) l_{t-1}.
func simpleExponentialSmoothing(series []float64, forecastDays int) Forecast {
	alpha := smoothingAlpha
	level := series[0]
	fitted := make([]float64, len(series))
	fitted[0] = level
	for i := 1; i < len(series); i++ {
		fitted[i] = level
		level = alpha*series[i] + (1-alpha)*level
	}
	sigma := residualSigma(series[1:], fitted[1:])
	values := make([]float64, forecastDays)
	for i := range values {
		values[i] = level
	}
	return Forecast{Method: MethodSimpleExponential, Points: band(values, sigma)}
}

const (
	doubleExpAlpha = 0.3
	doubleExpBeta  = 0.1
)

// doubleExponentialSmoothing implements Holt's linear method (level+trend,
// no damping): l_t = α y_t + (1-α)(l_{t-1}+b_{t-1}); b_t = β(l_t-l_{t-1}) + (1-β)b_{t-1}.
func doubleExponentialSmoothing(series []float64, forecastDays int) Forecast {
	alpha, beta := doubleExpAlpha, doubleExpBeta
	level := series[0]
	trend := series[1] - series[0]
	fitted := make([]float64, len(series))
	fitted[0] = level
	for i := 1; i < len(series); i++ {
		fitted[i] = level + trend
		prevLevel := level
		level = alpha*series[i] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	sigma := residualSigma(series[1:], fitted[1:])
	values := make([]float64, forecastDays)
	for i := range values {
		values[i] = level + float64(i+1)*trend
	}
	return Forecast{Method: MethodDoubleExponential, Points: band(values, sigma)}
}

const (
	holtAlpha   = 0.3
	holtBeta    = 0.1
	holtDamping = 0.9
)

// holtDamped implements Holt's linear method with a damped trend, so the
// trend contribution decays geometrically rather than compounding
// indefinitely across the forecast horizon.
func holtDamped(series []float64, forecastDays int) Forecast {
	alpha, beta, phi := holtAlpha, holtBeta, holtDamping
	level := series[0]
	trend := series[1] - series[0]
	fitted := make([]float64, len(series))
	fitted[0] = level
	for i := 1; i < len(series); i++ {
		fitted[i] = level + phi*trend
		prevLevel := level
		level = alpha*series[i] + (1-alpha)*(level+phi*trend)
		trend = beta*(level-prevLevel) + (1-beta)*phi*trend
	}
	sigma := residualSigma(series[1:], fitted[1:])
	values := make([]float64, forecastDays)
	dampSum := 0.0
	for i := range values {
		dampSum += math.Pow(phi, float64(i+1))
		values[i] = level + dampSum*trend
	}
	return Forecast{Method: MethodHoltDamped, Points: band(values, sigma)}
}
