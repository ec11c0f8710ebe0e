package util

import (
	"math"
	"testing"
)

func TestNewLoad(t *testing.T) {
	l := NewLoad([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if l.Workers != 8 || l.Total != 40 {
		t.Errorf("Expected 8 workers and total 40, got %d and %v", l.Workers, l.Total)
	}
	if l.Mean != 5 {
		t.Errorf("Expected mean 5, got %v", l.Mean)
	}
	if l.StdDev != 2 {
		t.Errorf("Expected std deviation 2, got %v", l.StdDev)
	}
	if l.Min != 2 || l.Max != 9 {
		t.Errorf("Expected min 2 and max 9, got %v and %v", l.Min, l.Max)
	}

	if empty := NewLoad(nil); empty != (Load{}) {
		t.Errorf("Expected zero load for empty input, got %+v", empty)
	}
	if idle := NewLoad([]float64{0, 0}); idle.Balance != 1 {
		t.Errorf("Expected idle workers to be balanced, got %v", idle.Balance)
	}
}

func TestLoadBalance(t *testing.T) {
	even := NewLoad([]float64{10, 10, 10, 10})
	if math.Abs(even.Balance-1) > 1e-9 {
		t.Errorf("Expected perfect balance for even load, got %v", even.Balance)
	}

	skewed := NewLoad([]float64{40, 0, 0, 0})
	if skewed.Balance >= even.Balance {
		t.Errorf("Skewed load should rate worse than even load (%v >= %v)", skewed.Balance, even.Balance)
	}
}
