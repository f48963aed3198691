package scoring

import (
	"math"

	"carimport-backend/internal/application/resale"
)

type Weights struct {
	Heuristic float64
	AI        float64
}

func DefaultWeights() Weights {
	return Weights{Heuristic: 0.7, AI: 0.3}
}

// Combine is the final ranking signal.
func Combine(heuristic, ai int, w Weights) int {
	return int(math.Round(float64(heuristic)*w.Heuristic + float64(ai)*w.AI))
}

// Margin subtracts the landed grand total from both ends of the resale bracket.
func Margin(b resale.Bracket, grandTotalChf int) (min, max int) {
	return b.Low - grandTotalChf, b.High - grandTotalChf
}
