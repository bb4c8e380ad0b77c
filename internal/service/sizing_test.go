package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name  string
		cash  float64
		score float64
		max   float64
		min   float64
		want  float64
	}{
		{
			// 1000 base * 1.8 multiplier, re-capped at the base.
			name: "strong score capped at base budget",
			cash: 10000, score: 0.90, max: 0.10, min: 100,
			want: 1000,
		},
		{
			// Multiplier saturates at 2.0 for perfect scores.
			name: "perfect score still capped",
			cash: 10000, score: 1.0, max: 0.10, min: 100,
			want: 1000,
		},
		{
			// 1000 base * 0.6 multiplier shrinks the allocation.
			name: "weak score shrinks allocation",
			cash: 10000, score: 0.30, max: 0.10, min: 100,
			want: 600,
		},
		{
			name: "neutral score yields the base budget",
			cash: 10000, score: 0.50, max: 0.10, min: 100,
			want: 1000,
		},
		{
			// 50 base, 0.6 multiplier: 30, lifted to the floor even though
			// the floor exceeds the base budget.
			name: "floor applies after the cap",
			cash: 500, score: 0.30, max: 0.10, min: 100,
			want: 100,
		},
		{
			name: "zero cash returns the floor",
			cash: 0, score: 0.90, max: 0.10, min: 100,
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionSize(tt.cash, tt.score, tt.max, tt.min)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
