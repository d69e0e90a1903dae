package analyzer

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficientData indicates that not enough history points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// CalculateRatioVolatility calculates the annualized historical volatility of
// the pool's A/B price ratio from a history series. The ratio's volatility is
// the direct driver of impermanent loss, which makes it the natural risk
// figure to report next to a coverage quote.
// It assumes the series is sorted chronologically. If not, it sorts it first.
// It uses logarithmic returns and standard deviation.
// The annualizationFactor should match the frequency of the data (e.g., 8760 for hourly, 365 for daily).
func CalculateRatioVolatility(points []HistoryPoint, annualizationFactor float64) (float64, error) {
	n := len(points)

	// --- Input Validation ---
	if n < 2 {
		return 0, ErrInsufficientData // Need at least two points to calculate one return
	}

	// Sort a copy so the caller's series keeps its order.
	ordered := make([]HistoryPoint, n)
	copy(ordered, points)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	// --- Calculate Logarithmic Returns ---
	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		currentRatio := ordered[i].PriceRatio
		previousRatio := ordered[i-1].PriceRatio

		// Check for invalid ratios that would break math.Log
		if previousRatio <= 0 || currentRatio <= 0 {
			continue // Skip this data point pair
		}

		logReturn := math.Log(currentRatio / previousRatio)
		logReturns = append(logReturns, logReturn)
	}

	// Check if we could calculate any returns
	numReturns := len(logReturns)
	if numReturns == 0 {
		return 0, ErrInsufficientData // Could happen if all previous ratios were <= 0
	}

	// --- Calculate Standard Deviation of Log Returns ---
	// 1. Calculate the mean (average)
	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(numReturns)

	// 2. Calculate sum of squared differences from the mean
	var sumSqDiff float64
	for _, r := range logReturns {
		sumSqDiff += math.Pow(r-mean, 2)
	}

	// 3. Calculate variance (using population standard deviation N, not N-1)
	variance := sumSqDiff / float64(numReturns)

	// 4. Standard deviation is the square root of variance
	stdDev := math.Sqrt(variance)

	// --- Annualize the Standard Deviation ---
	// Multiply by the square root of the number of periods in a year
	// corresponding to the data frequency.
	annualizedVolatility := stdDev * math.Sqrt(annualizationFactor)

	return annualizedVolatility, nil
}
