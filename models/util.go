package models

import "math"

// SoftThreshold applies the L1 proximal operator shrinking x towards zero by gamma.
func SoftThreshold(x, gamma float64) float64 {
	res := math.Max(math.Abs(x)-gamma, 0)
	if x < 0 {
		return -res
	}
	return res
}
