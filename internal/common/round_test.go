package common

import "testing"

func TestRoundTo(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     float64
	}{
		{1.004, 2, 1.0},
		{1.006, 2, 1.01},
		{-1.006, 2, -1.01},
		{123.456, 0, 123},
		{123.456, 1, 123.5},
		{0.0049, 2, 0},
		{31.428863, 2, 31.43},
	}

	for _, tc := range tests {
		if got := RoundTo(tc.v, tc.decimals); got != tc.want {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tc.v, tc.decimals, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(3075.0000000001); got != 3075.0 {
		t.Errorf("Round2 float noise: got %v", got)
	}
	if got := Round2(-14816.004); got != -14816.0 {
		t.Errorf("Round2(-14816.004) = %v", got)
	}
}
