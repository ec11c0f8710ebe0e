package util

import "math"

// Load summarizes how many envelopes each of a set of workers processed.
type Load struct {
	Workers int
	Total   float64
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	// Balance is 1 for a perfectly even spread and approaches 0 when one
	// worker carries everything
	Balance float64
}

// NewLoad computes the load summary of the per-worker counts.
func NewLoad(counts []float64) Load {
	l := Load{Workers: len(counts)}
	if l.Workers == 0 {
		return l
	}

	l.Min, l.Max = counts[0], counts[0]
	for _, c := range counts {
		l.Total += c
		l.Min = min(l.Min, c)
		l.Max = max(l.Max, c)
	}
	l.Mean = l.Total / float64(l.Workers)

	var variance float64
	for _, c := range counts {
		variance += (c - l.Mean) * (c - l.Mean)
	}
	l.StdDev = math.Sqrt(variance / float64(l.Workers))

	// idle workers count as balanced
	if l.Total == 0 {
		l.Balance = 1
		return l
	}

	cv := math.Min(l.StdDev/l.Mean, 1)
	l.Balance = (1-cv)/2 + l.Min/l.Max/2
	return l
}
