package trend

import (
	"math"

	"github.com/pricetrack/pricetrack/internal/model"
)

const (
	// MinSamples is the fewest quotes a direction can be read from.
	MinSamples = 3

	// flatDriftPercent is the deadband below which total drift over the
	// window counts as flat rather than a move.
	flatDriftPercent = 0.5

	// confidenceSteepness scales how quickly residual volatility erodes
	// confidence. At steepness 10 a 5% coefficient of variation maps to
	// confidence ~0.67.
	confidenceSteepness = 10.0

	// demandDriftScale converts relative drift into demand score: a 20%
	// price drop over the window saturates the drift contribution.
	demandDriftScale = 20.0

	// demandRecoveryBonus is added when the product restocks inside the
	// window while prices are falling.
	demandRecoveryBonus = 0.2
)

// Heuristic predicts short-term price direction from a bounded window of
// recent quotes. The zero value is not usable; construct with NewHeuristic.
type Heuristic struct {
	window int
}

// NewHeuristic returns a predictor that considers at most window quotes.
// Windows below MinSamples are raised to MinSamples.
func NewHeuristic(window int) *Heuristic {
	if window < MinSamples {
		window = MinSamples
	}
	return &Heuristic{window: window}
}

// Window reports the maximum number of quotes considered per prediction.
func (h *Heuristic) Window() int {
	return h.window
}

// Predict computes a trend signal from quotes ordered oldest to newest.
// Only the newest Window() quotes are considered. With fewer than
// MinSamples quotes the signal is marked Insufficient and carries no
// direction beyond the flat default.
func (h *Heuristic) Predict(quotes []model.Quote) model.TrendSignal {
	if len(quotes) > h.window {
		quotes = quotes[len(quotes)-h.window:]
	}
	n := len(quotes)
	if n < MinSamples {
		return model.TrendSignal{
			Insufficient: true,
			Direction:    model.TrendFlat,
			SampleSize:   n,
		}
	}

	prices := make([]float64, n)
	for i, q := range quotes {
		prices[i] = q.Price.InexactFloat64()
	}
	filtered := medianFilter(prices)

	slope, intercept := leastSquares(filtered)
	mean := average(filtered)
	if mean <= 0 {
		return model.TrendSignal{
			Insufficient: true,
			Direction:    model.TrendFlat,
			SampleSize:   n,
		}
	}

	// Total relative drift across the window, in percent.
	drift := slope * float64(n-1) / mean * 100

	direction := model.TrendFlat
	switch {
	case drift > flatDriftPercent:
		direction = model.TrendUp
	case drift < -flatDriftPercent:
		direction = model.TrendDown
	}

	volatility := residualVariation(filtered, slope, intercept, mean)
	confidence := clamp01(1 / (1 + volatility*confidenceSteepness))

	return model.TrendSignal{
		Direction:   direction,
		Magnitude:   math.Abs(drift),
		Confidence:  confidence,
		DemandScore: demandScore(quotes, drift),
		SampleSize:  n,
	}
}

// medianFilter suppresses single-point spikes with a median-of-three pass.
// Endpoints take the median of the three nearest points so an outlier in
// the first or last slot is clipped as well. Series of exactly MinSamples
// points pass through untouched since the filter would collapse them to a
// constant.
func medianFilter(prices []float64) []float64 {
	n := len(prices)
	if n <= MinSamples {
		out := make([]float64, n)
		copy(out, prices)
		return out
	}
	out := make([]float64, n)
	out[0] = median3(prices[0], prices[1], prices[2])
	out[n-1] = median3(prices[n-3], prices[n-2], prices[n-1])
	for i := 1; i < n-1; i++ {
		out[i] = median3(prices[i-1], prices[i], prices[i+1])
	}
	return out
}

func median3(a, b, c float64) float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

// leastSquares fits y = intercept + slope*x with x = 0..n-1.
func leastSquares(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	xMean := (n - 1) / 2
	yMean := average(ys)

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}
	slope = num / den
	intercept = yMean - slope*xMean
	return slope, intercept
}

func average(ys []float64) float64 {
	var sum float64
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

// residualVariation is the RMS of the fit residuals relative to the mean
// price, a coefficient of variation for the noise around the trend line.
func residualVariation(ys []float64, slope, intercept, mean float64) float64 {
	var sq float64
	for i, y := range ys {
		r := y - (intercept + slope*float64(i))
		sq += r * r
	}
	rms := math.Sqrt(sq / float64(len(ys)))
	return rms / mean
}

// demandScore proxies buyer interest from price velocity: falling prices
// against steady supply read as softening demand pressure on the seller,
// so the score rises as prices fall. A restock during a falling window
// adds a small bonus since selling out and returning suggests real
// interest at the lower price.
func demandScore(quotes []model.Quote, drift float64) float64 {
	score := 0.5 - drift/demandDriftScale
	if drift < 0 && restocked(quotes) {
		score += demandRecoveryBonus
	}
	return clamp01(score)
}

// restocked reports whether the window contains an out_of_stock quote
// directly followed by an in_stock one.
func restocked(quotes []model.Quote) bool {
	for i := 1; i < len(quotes); i++ {
		if quotes[i-1].Availability == model.AvailabilityOutOfStock &&
			quotes[i].Availability == model.AvailabilityInStock {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
