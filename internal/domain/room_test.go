package domain

import "testing"

func TestMaxTenantsForArea(t *testing.T) {
	tests := []struct {
		area float64
		want int
	}{
		{0, 1},
		{9, 1},
		{15, 1},
		{15.01, 2},
		{25, 2},
		{30, 3},
		{35, 3},
		{35.01, 4},
		{120, 4},
	}
	for _, tt := range tests {
		if got := MaxTenantsForArea(tt.area); got != tt.want {
			t.Errorf("MaxTenantsForArea(%v) = %d, want %d", tt.area, got, tt.want)
		}
	}
}
