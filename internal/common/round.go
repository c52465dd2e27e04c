package common

import "math"

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

// Round2 rounds a monetary amount to 2 decimal places.
func Round2(v float64) float64 {
	return RoundTo(v, 2)
}
