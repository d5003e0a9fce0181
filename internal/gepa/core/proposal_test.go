package core

import "testing"

func TestSumFloat64(t *testing.T) {
	if got := SumFloat64([]float64{1, 2, 3.5}); got != 6.5 {
		t.Errorf("expected 6.5, got %v", got)
	}
	if got := SumFloat64(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}

func TestMaxFloat64(t *testing.T) {
	if got := MaxFloat64(1, 5, 3); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
	if got := MaxFloat64(); got != 0 {
		t.Errorf("expected 0 for no arguments, got %v", got)
	}
	if got := MaxFloat64(-3, -1, -7); got != -1 {
		t.Errorf("expected -1, got %v", got)
	}
}
